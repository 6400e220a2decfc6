package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"waste-marketplace/onboarding/internal/onboarding/client"
	"waste-marketplace/onboarding/internal/onboarding/countdown"
	"waste-marketplace/onboarding/internal/onboarding/domain"
	"waste-marketplace/onboarding/internal/onboarding/service"
	"waste-marketplace/onboarding/internal/storage"
)

// fakeBackend serves the OTP and user-details endpoints.
func fakeBackend(t *testing.T, withDetails bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/otp/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-CSRFToken") != "csrf-test" {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "CSRF failed"})
			return
		}
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"otp_id": "abc123", "otp": "482913"},
			})
		case http.MethodPut:
			if r.URL.Path != "/api/otp/abc123/" {
				t.Errorf("verify path = %s", r.URL.Path)
			}
			data := map[string]any{"otp_verified": true, "user_id": "u1", "user_role": "seller"}
			if withDetails {
				data["user_details"] = map[string]any{"name": "Asha"}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
		}
	})
	mux.HandleFunc("/api/users/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runFlow(t *testing.T, withDetails bool, input string) (string, *storage.MemoryStore, *service.Controller) {
	t.Helper()
	srv := fakeBackend(t, withDetails)
	api := client.New(srv.URL+"/api/otp/", srv.URL+"/api/users/", "csrf-test", 5*time.Second)
	store := storage.NewMemoryStore()
	ctrl := service.New(service.Config{
		SellerLandingURL: "/seller/profile/",
		BuyerLandingURL:  "/buyer/profile/",
		HomeURL:          "/",
		OTPPrefill:       true,
	}, service.Deps{API: api, Store: store, Scheduler: countdown.NewManual()})
	t.Cleanup(ctrl.Close)

	var out bytes.Buffer
	p := New(strings.NewReader(input), &out)
	ctx := context.Background()
	ctrl.Bind(ctx, p)
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String(), store, ctrl
}

func TestPresenter_ReturningSeller(t *testing.T) {
	out, store, ctrl := runFlow(t, true, "seller\nindividual\n9876543210\n\n")

	for _, want := range []string{
		"Step 1 of 5",
		"Step 3 of 5",
		"Step 4 of 5: Enter the 6-digit OTP sent to XXXXXX3210",
		"OTP filled in: 482913",
		"Resend OTP in 30s",
		"Redirecting to /seller/profile/",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if ctrl.State().CurrentStep != domain.StepTerminal {
		t.Errorf("step = %s, want terminal", ctrl.State().CurrentStep)
	}
	if v, _, _ := store.Get(context.Background(), storage.KeyUserRole); v != "seller" {
		t.Errorf("user_role = %q, want seller", v)
	}
}

func TestPresenter_NewCorporateBuyer(t *testing.T) {
	input := strings.Join([]string{
		"buyer",
		"corporate",
		"98765",      // too short
		"9876543210", // accepted
		"482913",
		"name=Ravi; email=not-an-email",
		"name=Ravi; email=ravi@greenloop.in; company_name=Green Loop",
	}, "\n") + "\n"
	out, store, _ := runFlow(t, false, input)

	for _, want := range []string{
		"mobile: Please enter a valid 10-digit mobile number",
		"Step 5 of 5",
		"email:",
		"Redirecting to /buyer/profile/",
		"pending approval",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if v, _, _ := store.Get(context.Background(), storage.KeyIsApproved); v != "false" {
		t.Errorf("is_approved = %q, want false", v)
	}
}

func TestPresenter_BackAndWrongInput(t *testing.T) {
	out, _, ctrl := runFlow(t, false, "seller\nback\nvendor\n")
	if !strings.Contains(out, "role: ") {
		t.Errorf("invalid role should show a field error:\n%s", out)
	}
	if ctrl.State().CurrentStep != domain.StepRoleSelect {
		t.Errorf("step = %s, want role_select", ctrl.State().CurrentStep)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	p := New(r, &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx); err != context.Canceled {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}
