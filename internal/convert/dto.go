// Package convert maps domain models to and from the JSON bodies of the HTTP API.
package convert

import (
	"time"

	"github.com/and161185/grocer/internal/model"
	"github.com/and161185/grocer/internal/service"
)

// Response statuses and messages.
const (
	StatusRegistered      = "CUSTOMER SUCCESSFULLY REGISTERED"
	MessageSignedIn       = "SIGNED IN SUCCESSFULLY"
	MessageSignedOut      = "SIGNED OUT SUCCESSFULLY"
	StatusUpdated         = "CUSTOMER DETAILS UPDATED SUCCESSFULLY"
	StatusPasswordUpdated = "CUSTOMER PASSWORD UPDATED SUCCESSFULLY"
	StatusAddressSaved    = "ADDRESS SUCCESSFULLY REGISTERED"
	StatusAddressDeleted  = "ADDRESS DELETED SUCCESSFULLY"
)

// --- customer ---

// SignupRequest is the body of POST /customer/signup.
type SignupRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailAddress  string `json:"email_address"`
	ContactNumber string `json:"contact_number"`
	Password      string `json:"password"`
}

// StatusResponse carries a visible id and an outcome.
type StatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// LoginResponse is returned by POST /customer/login.
type LoginResponse struct {
	ID            string    `json:"id"`
	Message       string    `json:"message"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	EmailAddress  string    `json:"email_address"`
	ContactNumber string    `json:"contact_number"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// LogoutResponse is returned by POST /customer/logout.
type LogoutResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// CustomerResponse is a customer profile.
type CustomerResponse struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailAddress  string `json:"email_address"`
	ContactNumber string `json:"contact_number"`
	Status        string `json:"status,omitempty"`
}

// UpdateCustomerRequest is the body of PUT /customer.
type UpdateCustomerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdatePasswordRequest is the body of PUT /customer/password.
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// FromSignupRequest converts the request body to service input.
func FromSignupRequest(r SignupRequest) service.SignupInput {
	return service.SignupInput{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.EmailAddress,
		ContactNumber: r.ContactNumber,
		Password:      r.Password,
	}
}

// ToLoginResponse describes the account of a fresh session. The token itself
// travels in the access-token header.
func ToLoginResponse(s *model.Session, a *model.Account) LoginResponse {
	return LoginResponse{
		ID:            a.UUID,
		Message:       MessageSignedIn,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		EmailAddress:  a.Email,
		ContactNumber: a.ContactNumber,
		ExpiresAt:     s.ExpiresAt.UTC(),
	}
}

// ToCustomerResponse renders a profile; status may be empty.
func ToCustomerResponse(a *model.Account, status string) CustomerResponse {
	return CustomerResponse{
		ID:            a.UUID,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		EmailAddress:  a.Email,
		ContactNumber: a.ContactNumber,
		Status:        status,
	}
}

// Session is one login of the caller. The token is never rendered.
type Session struct {
	LoginAt   time.Time  `json:"login_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	LogoutAt  *time.Time `json:"logout_at,omitempty"`
	Active    bool       `json:"active"`
}

// SessionListResponse is returned by GET /customer/sessions.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// ToSessionList renders sessions in the given order, judging activity at now.
func ToSessionList(in []model.Session, now time.Time) SessionListResponse {
	out := make([]Session, 0, len(in))
	for i := range in {
		s := &in[i]
		r := Session{
			LoginAt:   s.LoginAt.UTC(),
			ExpiresAt: s.ExpiresAt.UTC(),
			Active:    s.Active(now),
		}
		if s.LogoutAt != nil {
			t := s.LogoutAt.UTC()
			r.LogoutAt = &t
		}
		out = append(out, r)
	}
	return SessionListResponse{Sessions: out}
}

// --- address ---

// SaveAddressRequest is the body of POST /address.
type SaveAddressRequest struct {
	FlatBuildingName string `json:"flat_building_name"`
	Locality         string `json:"locality"`
	City             string `json:"city"`
	Pincode          string `json:"pincode"`
}

// Address is one entry of an address list.
type Address struct {
	ID               string `json:"id"`
	FlatBuildingName string `json:"flat_building_name"`
	Locality         string `json:"locality"`
	City             string `json:"city"`
	Pincode          string `json:"pincode"`
}

// AddressListResponse is returned by GET /address/customer.
type AddressListResponse struct {
	Addresses []Address `json:"addresses"`
}

// FromSaveAddressRequest converts the request body to service input.
func FromSaveAddressRequest(r SaveAddressRequest) service.AddressInput {
	return service.AddressInput{
		FlatBuildingName: r.FlatBuildingName,
		Locality:         r.Locality,
		City:             r.City,
		Pincode:          r.Pincode,
	}
}

// ToAddress renders an address.
func ToAddress(a model.Address) Address {
	return Address{
		ID:               a.UUID,
		FlatBuildingName: a.FlatBuildingName,
		Locality:         a.Locality,
		City:             a.City,
		Pincode:          a.Pincode,
	}
}

// ToAddressList keeps the saved order and renders nil as an empty list.
func ToAddressList(in []model.Address) AddressListResponse {
	out := make([]Address, 0, len(in))
	for _, a := range in {
		out = append(out, ToAddress(a))
	}
	return AddressListResponse{Addresses: out}
}

// --- errors ---

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
