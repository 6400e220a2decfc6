package client

import (
	"context"
	"net/http"

	"waste-marketplace/onboarding/internal/onboarding/domain"
)

const opSubmitDetails = "submit user details"

// UserDetailsRequest is the body of the user-details update. Optional fields are omitted when empty.
type UserDetailsRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	UserType     string `json:"user_type"`
	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Pincode      string `json:"pincode,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
	GSTNumber    string `json:"gst_number,omitempty"`
	IDType       string `json:"id_type,omitempty"`
	PANNumber    string `json:"pan_number,omitempty"`
	AadharNumber string `json:"aadhar_number,omitempty"`
	CINNumber    string `json:"cin_number,omitempty"`
}

// NewUserDetailsRequest maps a validated form to the request body.
func NewUserDetailsRequest(userType string, f domain.DetailForm) UserDetailsRequest {
	return UserDetailsRequest{
		Name:         f.Name,
		Email:        f.Email,
		UserType:     userType,
		AddressLine1: f.AddressLine1,
		AddressLine2: f.AddressLine2,
		City:         f.City,
		State:        f.State,
		Pincode:      f.Pincode,
		CompanyName:  f.CompanyName,
		GSTNumber:    f.GSTNumber,
		IDType:       string(f.IDType),
		PANNumber:    f.PANNumber,
		AadharNumber: f.AadharNumber,
		CINNumber:    f.CINNumber,
	}
}

// SubmitUserDetails stores the profile for userID. Returns nil only when the backend reports success.
func (c *Client) SubmitUserDetails(ctx context.Context, userID string, req UserDetailsRequest) error {
	env, err := c.do(ctx, opSubmitDetails, http.MethodPut, resourceURL(c.UserDetailsEndpoint, userID), req)
	if err != nil {
		return err
	}
	if !env.Success {
		return &ServerError{Op: opSubmitDetails, Status: http.StatusOK, Message: env.text()}
	}
	return nil
}
