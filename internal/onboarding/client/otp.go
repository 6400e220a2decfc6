package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	opSendOTP   = "send otp"
	opVerifyOTP = "verify otp"
)

// SendOTPResult is a successful issuance. OTP is only populated by non-production backends.
type SendOTPResult struct {
	TransactionID string
	OTP           string
}

type sendOTPData struct {
	OTPID flexString `json:"otp_id"`
	OTP   flexString `json:"otp"`
}

// SendOTP asks the backend to issue an OTP for mobile.
// Returns a TransportError when the call could not complete and a ServerError when the backend
// refused it or omitted the transaction id.
func (c *Client) SendOTP(ctx context.Context, mobile string) (*SendOTPResult, error) {
	env, err := c.do(ctx, opSendOTP, http.MethodPost, c.OTPEndpoint, map[string]string{"mobile": mobile})
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &ServerError{Op: opSendOTP, Status: http.StatusOK, Message: env.text()}
	}
	var data sendOTPData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, &TransportError{Op: opSendOTP, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	if data.OTPID == "" {
		return nil, &ServerError{Op: opSendOTP, Status: http.StatusOK, Message: "missing otp_id in response"}
	}
	return &SendOTPResult{TransactionID: string(data.OTPID), OTP: string(data.OTP)}, nil
}

// VerifyOTPResult is the backend verdict on an OTP. UserDetails is nil when the backend holds no
// completed profile for the user.
type VerifyOTPResult struct {
	Verified         bool
	UserID           string
	UserDetails      map[string]any
	UserRole         string
	IsApproved       *bool
	ProfileCompleted *bool
	Message          string
}

type verifyOTPData struct {
	OTPVerified      bool            `json:"otp_verified"`
	UserID           flexString      `json:"user_id"`
	UserDetails      json.RawMessage `json:"user_details"`
	UserRole         string          `json:"user_role"`
	IsApproved       *bool           `json:"is_approved"`
	ProfileCompleted *bool           `json:"profile_completed"`
	Message          string          `json:"message"`
}

// VerifyOTP submits code for the transaction issued by SendOTP.
// Only transport failures are returned as errors; a rejected or failed verification is reported
// through Verified=false and Message so callers can branch on the backend's verdict.
func (c *Client) VerifyOTP(ctx context.Context, transactionID, code, userType string) (*VerifyOTPResult, error) {
	body := map[string]string{"otp": code, "user_type": userType}
	env, err := c.do(ctx, opVerifyOTP, http.MethodPut, resourceURL(c.OTPEndpoint, transactionID), body)
	if err != nil {
		if IsTransport(err) {
			return nil, err
		}
		return &VerifyOTPResult{Message: ServerMessage(err)}, nil
	}
	var data verifyOTPData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, &TransportError{Op: opVerifyOTP, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	res := &VerifyOTPResult{
		Verified:         env.Success && data.OTPVerified,
		UserID:           string(data.UserID),
		UserRole:         data.UserRole,
		IsApproved:       data.IsApproved,
		ProfileCompleted: data.ProfileCompleted,
		Message:          data.Message,
	}
	if res.Message == "" {
		res.Message = env.text()
	}
	if len(data.UserDetails) > 0 && string(data.UserDetails) != "null" {
		var details map[string]any
		if err := json.Unmarshal(data.UserDetails, &details); err == nil && len(details) > 0 {
			res.UserDetails = details
		}
	}
	if res.Verified && res.UserID == "" {
		res.Verified = false
		res.Message = "Verification response did not include a user id"
	}
	return res, nil
}
