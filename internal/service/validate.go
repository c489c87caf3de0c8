package service

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/grocer/internal/errs"
)

var (
	emailRe   = regexp.MustCompile("^[\\w!#$%&’*+/=?`{|}~^-]+(?:\\.[\\w!#$%&’*+/=?`{|}~^-]+)*@(?:[a-zA-Z0-9-]+\\.)+[a-zA-Z]{2,6}$")
	pincodeRe = regexp.MustCompile(`^[0-9]{6}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("customer_email", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return pincodeRe.MatchString(fl.Field().String())
	})
	return v
}

const (
	maxNameLen     = 30 // customer.firstname / lastname
	emailFieldName = "Email"
)

// SignupInput carries the fields of a new customer. max limits follow the column widths.
type SignupInput struct {
	FirstName     string `validate:"required,max=30"`
	LastName      string `validate:"required,max=30"`
	Email         string `validate:"customer_email,max=50"`
	ContactNumber string `validate:"required,max=30"`
	Password      string `validate:"required"`
}

// AddressInput carries the fields of a new address.
type AddressInput struct {
	FlatBuildingName string `validate:"required,max=255"`
	Locality         string `validate:"required,max=255"`
	City             string `validate:"required,max=30"`
	Pincode          string `validate:"required,pincode"`
}

// validateSignup reports missing fields, then over-long fields, then a malformed email.
func validateSignup(in SignupInput) error {
	fe := fieldErrors(validate.Struct(in))
	if f := firstWithTag(fe, "required"); f != nil {
		return errs.New(errs.MissingField, errs.CodeMissingField, "All fields should be filled: "+f.Field()+" is empty")
	}
	for _, f := range fe {
		if f.Tag() == "max" && f.Field() != emailFieldName {
			return errs.New(errs.MissingField, errs.CodeFieldTooLong, tooLong(f))
		}
	}
	if len(fe) > 0 {
		return errs.New(errs.InvalidEmail, errs.CodeInvalidEmail, "Invalid email-id format!")
	}
	return nil
}

func validateAddress(in AddressInput) error {
	fe := fieldErrors(validate.Struct(in))
	if f := firstWithTag(fe, "required"); f != nil {
		return errs.New(errs.SaveAddress, errs.CodeEmptyAddressField, "No field can be empty: "+f.Field()+" is empty")
	}
	if f := firstWithTag(fe, "max"); f != nil {
		return errs.New(errs.SaveAddress, errs.CodeAddressTooLong, tooLong(f))
	}
	if len(fe) > 0 {
		return errs.New(errs.SaveAddress, errs.CodeInvalidPincode, "Invalid pincode")
	}
	return nil
}

// validateName checks a profile update against the name column width.
func validateName(first, last string) error {
	if first == "" {
		return errs.New(errs.UpdateCustomer, errs.CodeEmptyFirstName, "First name field should not be empty")
	}
	if utf8.RuneCountInString(first) > maxNameLen || utf8.RuneCountInString(last) > maxNameLen {
		return errs.New(errs.UpdateCustomer, errs.CodeNameTooLong,
			"First and last name must be at most "+strconv.Itoa(maxNameLen)+" characters")
	}
	return nil
}

func tooLong(f validator.FieldError) string {
	return f.Field() + " must be at most " + f.Param() + " characters"
}

func fieldErrors(err error) validator.ValidationErrors {
	var fe validator.ValidationErrors
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

func firstWithTag(fe validator.ValidationErrors, tag string) validator.FieldError {
	for _, f := range fe {
		if f.Tag() == tag {
			return f
		}
	}
	return nil
}

// PasswordPolicy is the minimum strength required of a new password.
type PasswordPolicy struct {
	MinLength int
}

// DefaultPasswordPolicy requires 8 characters.
var DefaultPasswordPolicy = PasswordPolicy{MinLength: 8}

// Check requires MinLength runes and at least one digit, one upper-case letter
// and one character that is neither a letter nor a digit.
func (p PasswordPolicy) Check(pw string) error {
	var digit, upper, special bool
	n := 0
	for _, r := range pw {
		n++
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			special = true
		}
	}
	if n < p.MinLength || !digit || !upper || !special || strings.TrimSpace(pw) != pw {
		return errs.New(errs.WeakPassword, errs.CodeWeakPassword, "Weak password!")
	}
	return nil
}
