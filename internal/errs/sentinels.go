// Package errs contains sentinel errors and the tagged domain error used across layers
// for stable error mapping.
package errs

import "errors"

// Repository-level sentinels.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., contact number taken).
	ErrAlreadyExists = errors.New("already exists")
)

// Kind sentinels: errors.Is(err, ErrAuthorization) matches any authorization failure
// regardless of its code.
var (
	ErrInvalidEmail         = &Error{Kind: InvalidEmail}
	ErrMissingField         = &Error{Kind: MissingField}
	ErrContactAlreadyExists = &Error{Kind: ContactAlreadyExists}
	ErrAuthentication       = &Error{Kind: Authentication}
	ErrAuthorization        = &Error{Kind: Authorization}
	ErrUpdateCustomer       = &Error{Kind: UpdateCustomer}
	ErrWeakPassword         = &Error{Kind: WeakPassword}
	ErrMalformedToken       = &Error{Kind: MalformedToken}
	ErrExpiredToken         = &Error{Kind: ExpiredToken}
	ErrSaveAddress          = &Error{Kind: SaveAddress}
	ErrAddressNotFound      = &Error{Kind: AddressNotFound}
	ErrRateLimited          = &Error{Kind: RateLimited}
	ErrInfrastructure       = &Error{Kind: Infrastructure}
)

// Diagnostic codes.
const (
	CodeUnknownContact   = "ATH-001"
	CodePasswordMismatch = "ATH-002"
	CodeBadBasicAuth     = "ATH-003"

	CodeUnknownToken = "ATHR-001"
	CodeLoggedOut    = "ATHR-002"
	CodeSessionExp   = "ATHR-003"
	CodeNotOwner     = "ATHR-004"

	CodeContactExists = "SGR-001"
	CodeInvalidEmail  = "SGR-002"
	CodeFieldTooLong  = "SGR-003"
	CodeMissingField  = "SGR-005"

	CodeWeakPassword    = "UCR-001"
	CodeEmptyFirstName  = "UCR-002"
	CodeEmptyPassword   = "UCR-003"
	CodeOldPasswordFail = "UCR-004"
	CodeNameTooLong     = "UCR-005"

	CodeMalformedToken = "TKN-001"
	CodeExpiredToken   = "TKN-002"

	CodeEmptyAddressField = "SAR-001"
	CodeInvalidPincode    = "SAR-002"
	CodeAddressTooLong    = "SAR-003"
	CodeNoSuchAddress     = "ANF-003"
	CodeEmptyAddressID    = "ANF-005"

	CodeRateLimited = "LIM-001"
	CodeInfra       = "INF-001"
)
