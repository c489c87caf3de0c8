package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure. Transport layers map kinds, not codes.
type Kind int

const (
	Unknown Kind = iota
	InvalidEmail
	MissingField
	ContactAlreadyExists
	Authentication
	Authorization
	UpdateCustomer
	WeakPassword
	MalformedToken
	ExpiredToken
	SaveAddress
	AddressNotFound
	RateLimited
	Infrastructure
)

var kindNames = map[Kind]string{
	Unknown:              "unknown",
	InvalidEmail:         "invalid email",
	MissingField:         "missing field",
	ContactAlreadyExists: "contact already exists",
	Authentication:       "authentication failed",
	Authorization:        "authorization failed",
	UpdateCustomer:       "update customer failed",
	WeakPassword:         "weak password",
	MalformedToken:       "malformed token",
	ExpiredToken:         "expired token",
	SaveAddress:          "save address failed",
	AddressNotFound:      "address not found",
	RateLimited:          "rate limited",
	Infrastructure:       "infrastructure error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a tagged failure: a kind, a diagnostic code and a human-readable message.
// Err carries the underlying cause for Infrastructure errors.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

// New builds a tagged error.
func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// Infra wraps a persistence or transport failure the core does not interpret.
func Infra(op string, err error) *Error {
	return &Error{Kind: Infrastructure, Code: CodeInfra, Msg: op, Err: err}
}

func (e *Error) Error() string {
	var s string
	switch {
	case e.Code != "" && e.Msg != "":
		s = e.Code + ": " + e.Msg
	case e.Code != "":
		s = e.Code + ": " + e.Kind.String()
	case e.Msg != "":
		s = e.Msg
	default:
		s = e.Kind.String()
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target without a code matches every code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// KindOf returns the kind of the first tagged error in the chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// CodeOf returns the diagnostic code of the first tagged error in the chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Message returns the human-readable message of the first tagged error in the chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Msg != "" {
			return e.Msg
		}
		return e.Kind.String()
	}
	return err.Error()
}
