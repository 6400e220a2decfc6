package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Keys written on a successful onboarding, read by downstream pages.
const (
	KeyUserID          = "user_id"
	KeyUserRole        = "user_role"
	KeyLoginTimestamp  = "login_timestamp"
	KeyIsLoggedIn      = "is_logged_in"
	KeyIsApproved      = "is_approved"
	KeyProfileComplete = "profile_complete"
)

var sessionKeys = []string{KeyUserID, KeyUserRole, KeyLoginTimestamp, KeyIsLoggedIn, KeyIsApproved, KeyProfileComplete}

// Session is the durable record of a finished onboarding.
type Session struct {
	UserID          string
	Role            string
	LoginTimestamp  time.Time
	IsLoggedIn      bool
	IsApproved      bool
	ProfileComplete bool
}

// SaveSession writes every session key in one SetMany, so a failed save leaves no partial
// session behind. Booleans are stored as "true"/"false" and the timestamp as RFC 3339 in UTC.
func SaveSession(ctx context.Context, store Store, s Session) error {
	values := map[string]string{
		KeyUserID:          s.UserID,
		KeyUserRole:        s.Role,
		KeyLoginTimestamp:  s.LoginTimestamp.UTC().Format(time.RFC3339),
		KeyIsLoggedIn:      strconv.FormatBool(s.IsLoggedIn),
		KeyIsApproved:      strconv.FormatBool(s.IsApproved),
		KeyProfileComplete: strconv.FormatBool(s.ProfileComplete),
	}
	if err := store.SetMany(ctx, values); err != nil {
		return fmt.Errorf("storage: save session: %w", err)
	}
	return nil
}

// LoadSession reads the session keys back. Returns nil when no user id is stored.
// Unparseable flags read as false and an unparseable timestamp as the zero time.
func LoadSession(ctx context.Context, store Store) (*Session, error) {
	all, err := store.All(ctx)
	if err != nil {
		return nil, err
	}
	if all[KeyUserID] == "" {
		return nil, nil
	}
	s := &Session{
		UserID:          all[KeyUserID],
		Role:            all[KeyUserRole],
		IsLoggedIn:      parseBool(all[KeyIsLoggedIn]),
		IsApproved:      parseBool(all[KeyIsApproved]),
		ProfileComplete: parseBool(all[KeyProfileComplete]),
	}
	if ts, err := time.Parse(time.RFC3339, all[KeyLoginTimestamp]); err == nil {
		s.LoginTimestamp = ts
	}
	return s, nil
}

// ClearSession removes every session key.
func ClearSession(ctx context.Context, store Store) error {
	for _, k := range sessionKeys {
		if err := store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
