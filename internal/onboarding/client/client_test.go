package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"waste-marketplace/onboarding/internal/onboarding/domain"
)

func TestNew_Defaults(t *testing.T) {
	c := New("https://api.test/otp/", "https://api.test/users/", "tok", 0)
	if c.HTTPClient == nil {
		t.Fatal("HTTPClient should be set")
	}
	if c.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("HTTPClient.Timeout = %v, want %v", c.HTTPClient.Timeout, defaultTimeout)
	}
	if c.CSRFToken != "tok" {
		t.Errorf("CSRFToken = %q, want tok", c.CSRFToken)
	}
}

func TestResourceURL(t *testing.T) {
	if got := resourceURL("https://api.test/otp/", "abc123"); got != "https://api.test/otp/abc123/" {
		t.Errorf("resourceURL = %q", got)
	}
	if got := resourceURL("https://api.test/otp", "a b"); got != "https://api.test/otp/a%20b/" {
		t.Errorf("resourceURL = %q", got)
	}
}

func TestSendOTP_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-CSRFToken") != "csrf-1" {
			t.Errorf("X-CSRFToken = %q, want csrf-1", r.Header.Get("X-CSRFToken"))
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Decode body: %v", err)
		}
		if body["mobile"] != "9876543210" {
			t.Errorf("mobile = %q, want 9876543210", body["mobile"])
		}
		w.Write([]byte(`{"success":true,"data":{"otp_id":"abc123","otp":"482913"}}`))
	}))
	defer server.Close()

	c := New(server.URL+"/otp/", server.URL+"/users/", "csrf-1", time.Second)
	res, err := c.SendOTP(context.Background(), "9876543210")
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if res.TransactionID != "abc123" {
		t.Errorf("TransactionID = %q, want abc123", res.TransactionID)
	}
	if res.OTP != "482913" {
		t.Errorf("OTP = %q, want 482913", res.OTP)
	}
}

func TestSendOTP_NumericIDWithoutOTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"otp_id":42}}`))
	}))
	defer server.Close()

	res, err := New(server.URL, server.URL, "", time.Second).SendOTP(context.Background(), "9876543210")
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if res.TransactionID != "42" || res.OTP != "" {
		t.Errorf("result = %+v, want id 42 and no otp", res)
	}
}

func TestSendOTP_ServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"error":"Too many OTP requests"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, server.URL, "", time.Second).SendOTP(context.Background(), "9876543210")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTransport(err) {
		t.Errorf("error %v should not be a transport error", err)
	}
	if msg := ServerMessage(err); msg != "Too many OTP requests" {
		t.Errorf("ServerMessage = %q", msg)
	}
}

func TestSendOTP_SuccessFalseWith200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":{"mobile":["Enter a valid number."]}}`))
	}))
	defer server.Close()

	_, err := New(server.URL, server.URL, "", time.Second).SendOTP(context.Background(), "9876543210")
	if msg := ServerMessage(err); msg != "mobile: Enter a valid number." {
		t.Errorf("ServerMessage = %q", msg)
	}
}

func TestSendOTP_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer server.Close()

	_, err := New(server.URL, server.URL, "", time.Second).SendOTP(context.Background(), "9876543210")
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want ServerError", err)
	}
}

func TestSendOTP_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(url, url, "", time.Second).SendOTP(context.Background(), "9876543210")
	if !IsTransport(err) {
		t.Fatalf("error = %v, want TransportError", err)
	}
}

func TestSendOTP_UnreadableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	_, err := New(server.URL, server.URL, "", time.Second).SendOTP(context.Background(), "9876543210")
	if !IsTransport(err) {
		t.Fatalf("error = %v, want TransportError", err)
	}
}

func TestVerifyOTP_Verified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		if r.URL.Path != "/otp/abc123/" {
			t.Errorf("path = %q, want /otp/abc123/", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["otp"] != "123456" || body["user_type"] != "seller_corporate" {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(`{"success":true,"data":{"otp_verified":true,"user_id":"u1","user_role":"seller","is_approved":true,"user_details":{"name":"Ravi"}}}`))
	}))
	defer server.Close()

	c := New(server.URL+"/otp/", server.URL+"/users/", "", time.Second)
	res, err := c.VerifyOTP(context.Background(), "abc123", "123456", "seller_corporate")
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if !res.Verified || res.UserID != "u1" || res.UserRole != "seller" {
		t.Errorf("result = %+v", res)
	}
	if res.UserDetails == nil {
		t.Error("UserDetails should be present")
	}
	if res.IsApproved == nil || !*res.IsApproved {
		t.Error("IsApproved should be true")
	}
}

func TestVerifyOTP_NoDetails(t *testing.T) {
	for _, payload := range []string{
		`{"success":true,"data":{"otp_verified":true,"user_id":7}}`,
		`{"success":true,"data":{"otp_verified":true,"user_id":"u1","user_details":null}}`,
		`{"success":true,"data":{"otp_verified":true,"user_id":"u1","user_details":{}}}`,
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		}))
		res, err := New(server.URL, server.URL, "", time.Second).VerifyOTP(context.Background(), "t", "123456", "buyer_individual")
		server.Close()
		if err != nil {
			t.Fatalf("VerifyOTP(%s): %v", payload, err)
		}
		if !res.Verified || res.UserDetails != nil {
			t.Errorf("VerifyOTP(%s) = %+v, want verified without details", payload, res)
		}
	}
}

func TestVerifyOTP_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
		message string
	}{
		{"not verified", http.StatusOK, `{"success":true,"data":{"otp_verified":false,"message":"Invalid or expired OTP"}}`, "Invalid or expired OTP"},
		{"success false", http.StatusOK, `{"success":false,"error":"OTP expired"}`, "OTP expired"},
		{"4xx", http.StatusBadRequest, `{"success":false,"error":"Invalid OTP"}`, "Invalid OTP"},
		{"4xx without body", http.StatusForbidden, ``, ""},
		{"verified without id", http.StatusOK, `{"success":true,"data":{"otp_verified":true}}`, "Verification response did not include a user id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer server.Close()

			res, err := New(server.URL, server.URL, "", time.Second).VerifyOTP(context.Background(), "t", "123456", "buyer_individual")
			if err != nil {
				t.Fatalf("VerifyOTP: %v", err)
			}
			if res.Verified {
				t.Error("Verified should be false")
			}
			if res.Message != tt.message {
				t.Errorf("Message = %q, want %q", res.Message, tt.message)
			}
		})
	}
}

func TestGatewayErrorPageIsTransport(t *testing.T) {
	for _, status := range []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(status)
			w.Write([]byte(`<html><body><h1>502 Bad Gateway</h1></body></html>`))
		}))
		c := New(server.URL, server.URL, "", time.Second)

		res, err := c.VerifyOTP(context.Background(), "t", "123456", "buyer_individual")
		if !IsTransport(err) {
			t.Errorf("status %d: VerifyOTP = %+v, %v; want TransportError", status, res, err)
		}
		if _, err := c.SendOTP(context.Background(), "9876543210"); !IsTransport(err) {
			t.Errorf("status %d: SendOTP error = %v, want TransportError", status, err)
		}
		if err := c.SubmitUserDetails(context.Background(), "u1", UserDetailsRequest{}); !IsTransport(err) {
			t.Errorf("status %d: SubmitUserDetails error = %v, want TransportError", status, err)
		}
		server.Close()
	}
}

func TestVerifyOTP_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	c := New(server.URL, server.URL, "", time.Second)
	c.HTTPClient = &http.Client{Timeout: 5 * time.Millisecond}
	_, err := c.VerifyOTP(context.Background(), "t", "123456", "buyer_individual")
	if !IsTransport(err) {
		t.Fatalf("error = %v, want TransportError", err)
	}
}

func TestSubmitUserDetails(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/users/u1/" {
			t.Errorf("%s %s, want PUT /users/u1/", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-CSRFToken") != "csrf-1" {
			t.Errorf("X-CSRFToken = %q", r.Header.Get("X-CSRFToken"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	c := New(server.URL+"/otp/", server.URL+"/users/", "csrf-1", time.Second)
	req := NewUserDetailsRequest("buyer_corporate", domain.DetailForm{
		Name:        "Ravi",
		Email:       "ravi@recyclers.in",
		CompanyName: "Green Recyclers",
		IDType:      domain.IDCIN,
		CINNumber:   "U12345MH2020PTC123456",
	})
	if err := c.SubmitUserDetails(context.Background(), "u1", req); err != nil {
		t.Fatalf("SubmitUserDetails: %v", err)
	}
	if got["name"] != "Ravi" || got["user_type"] != "buyer_corporate" || got["company_name"] != "Green Recyclers" {
		t.Errorf("body = %v", got)
	}
	if _, ok := got["pan_number"]; ok {
		t.Error("empty optional fields should be omitted")
	}
}

func TestSubmitUserDetails_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"Email already in use"}`))
	}))
	defer server.Close()

	err := New(server.URL, server.URL, "", time.Second).SubmitUserDetails(context.Background(), "u1", UserDetailsRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Email already in use") {
		t.Errorf("error = %q", err.Error())
	}
}
