package service

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/grocer/internal/errs"
	"github.com/and161185/grocer/internal/limiter"
	"github.com/and161185/grocer/internal/model"
	"github.com/and161185/grocer/internal/repository"
)

// CustomerService implements signup, login, logout, authorization and profile operations.
type CustomerService struct {
	accounts  repository.AccountRepository
	sessions  repository.SessionRepository
	passwords PasswordProvider
	tokens    TokenProvider

	lim    limiter.Limiter
	policy PasswordPolicy
	now    func() time.Time
	newID  func() (string, error)
}

// Option configures a CustomerService.
type Option func(*CustomerService)

// WithLimiter enables login rate limiting.
func WithLimiter(l limiter.Limiter) Option { return func(s *CustomerService) { s.lim = l } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *CustomerService) { s.now = now } }

// WithPasswordPolicy overrides DefaultPasswordPolicy.
func WithPasswordPolicy(p PasswordPolicy) Option { return func(s *CustomerService) { s.policy = p } }

// WithIDGenerator overrides the visible id generator.
func WithIDGenerator(f func() (string, error)) Option {
	return func(s *CustomerService) { s.newID = f }
}

// NewCustomerService constructs CustomerService with required dependencies.
func NewCustomerService(
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	passwords PasswordProvider,
	tokens TokenProvider,
	opts ...Option,
) *CustomerService {
	s := &CustomerService{
		accounts:  accounts,
		sessions:  sessions,
		passwords: passwords,
		tokens:    tokens,
		policy:    DefaultPasswordPolicy,
		now:       time.Now,
		newID:     newUUID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Signup validates the input, hashes the password and persists a new account.
func (s *CustomerService) Signup(ctx context.Context, in SignupInput) (*model.Account, error) {
	if err := validateSignup(in); err != nil {
		return nil, err
	}
	id, err := s.newID()
	if err != nil {
		return nil, errs.Infra("generate customer id", err)
	}
	salt, hash, err := s.passwords.Encrypt(in.Password)
	if err != nil {
		return nil, errs.Infra("hash password", err)
	}

	a := &model.Account{
		UUID:          id,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		ContactNumber: in.ContactNumber,
		PasswordHash:  hash,
		Salt:          salt,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.New(errs.ContactAlreadyExists, errs.CodeContactExists,
				"This contact number is already registered! Try other contact number.")
		}
		return nil, err
	}
	return a, nil
}

// Login authenticates contact/password and opens a session of SessionLifetime.
// ip keys the rate limiter together with the contact.
func (s *CustomerService) Login(ctx context.Context, contact, password, ip string) (*model.Session, *model.Account, error) {
	ipHash := limiter.HashIP(ip)

	if s.lim != nil {
		allowed, _, err := s.lim.Allow(ctx, contact, ipHash)
		if err != nil {
			return nil, nil, errs.Infra("check login limiter", err)
		}
		if !allowed {
			return nil, nil, rateLimited()
		}
	}

	a, err := s.accounts.GetByContact(ctx, contact)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil, s.loginFailed(ctx, contact, ipHash,
			errs.New(errs.Authentication, errs.CodeUnknownContact, "This contact number has not been registered!"))
	}
	if err != nil {
		return nil, nil, err
	}
	if !s.passwords.Matches(password, a.Salt, a.PasswordHash) {
		return nil, nil, s.loginFailed(ctx, contact, ipHash,
			errs.New(errs.Authentication, errs.CodePasswordMismatch, "Invalid Credentials"))
	}

	if s.lim != nil {
		// best-effort reset
		_ = s.lim.Success(ctx, contact, ipHash)
	}

	now := s.now().Truncate(time.Second)
	exp := now.Add(SessionLifetime)
	tok, err := s.tokens.Generate(a.PasswordHash, a.UUID, now, exp)
	if err != nil {
		return nil, nil, errs.Infra("sign token", err)
	}
	sess := &model.Session{
		UUID:        a.UUID,
		AccountID:   a.ID,
		AccessToken: tok,
		LoginAt:     now,
		ExpiresAt:   exp,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, nil, err
	}
	return sess, a, nil
}

// loginFailed records the failure and returns cause, or a rate limit error when
// this failure placed a block.
func (s *CustomerService) loginFailed(ctx context.Context, contact string, ipHash []byte, cause error) error {
	if s.lim == nil {
		return cause
	}
	if blocked, _, err := s.lim.Failure(ctx, contact, ipHash); err == nil && blocked {
		return rateLimited()
	}
	return cause
}

func rateLimited() error {
	return errs.New(errs.RateLimited, errs.CodeRateLimited, "Too many failed login attempts, try again later")
}

// Authorize is the gate of every authenticated operation. It returns the account
// owning an active session with token.
func (s *CustomerService) Authorize(ctx context.Context, token string) (*model.Account, error) {
	_, a, err := s.authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *CustomerService) authorize(ctx context.Context, token string) (*model.Session, *model.Account, error) {
	if token == "" {
		return nil, nil, unknownToken()
	}
	sess, err := s.sessions.GetByToken(ctx, token)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil, unknownToken()
	}
	if err != nil {
		return nil, nil, err
	}
	if !sess.Active(s.now()) {
		if sess.LogoutAt != nil {
			return nil, nil, errs.New(errs.Authorization, errs.CodeLoggedOut, "Customer is logged out. Log in again to access this endpoint.")
		}
		return nil, nil, sessionExpired()
	}

	a, err := s.accounts.GetByID(ctx, sess.AccountID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil, unknownToken()
	}
	if err != nil {
		return nil, nil, err
	}

	sub, err := s.tokens.DecodeAndValidate(a.PasswordHash, token)
	switch {
	case errors.Is(err, errs.ErrExpiredToken):
		return nil, nil, sessionExpired()
	case err != nil:
		return nil, nil, unknownToken()
	case sub != a.UUID:
		return nil, nil, unknownToken()
	}
	return sess, a, nil
}

func unknownToken() error {
	return errs.New(errs.Authorization, errs.CodeUnknownToken, "Customer is not Logged in.")
}

func sessionExpired() error {
	return errs.New(errs.Authorization, errs.CodeSessionExp, "Your session is expired. Log in again to access this endpoint.")
}

// Logout authorizes token and marks its session logged out.
func (s *CustomerService) Logout(ctx context.Context, token string) (*model.Session, error) {
	if _, _, err := s.authorize(ctx, token); err != nil {
		return nil, err
	}
	sess, err := s.sessions.MarkLoggedOut(ctx, token, s.now())
	if errors.Is(err, errs.ErrNotFound) {
		// lost a race with a concurrent logout
		return nil, errs.New(errs.Authorization, errs.CodeLoggedOut, "Customer is logged out. Log in again to access this endpoint.")
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetCustomer returns the account owning token.
func (s *CustomerService) GetCustomer(ctx context.Context, token string) (*model.Account, error) {
	return s.Authorize(ctx, token)
}

// UpdateCustomer replaces the first and last name of the account owning token.
func (s *CustomerService) UpdateCustomer(ctx context.Context, token, firstName, lastName string) (*model.Account, error) {
	a, err := s.Authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := validateName(firstName, lastName); err != nil {
		return nil, err
	}
	a.FirstName, a.LastName = firstName, lastName
	if err := s.accounts.UpdateProfile(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListSessions returns every session of the caller, newest first.
func (s *CustomerService) ListSessions(ctx context.Context, token string) ([]model.Session, error) {
	_, a, err := s.authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.sessions.ListByAccount(ctx, a.ID)
}

// ChangePassword verifies oldPassword for an authorized account, checks newPassword
// against the policy and stores its hash under the original salt. Every open
// session of the account is logged out in the same transaction.
func (s *CustomerService) ChangePassword(ctx context.Context, oldPassword, newPassword string, a *model.Account) (*model.Account, error) {
	if oldPassword == "" {
		return nil, errs.New(errs.UpdateCustomer, errs.CodeEmptyPassword, "Old password should not be empty")
	}
	if !s.passwords.Matches(oldPassword, a.Salt, a.PasswordHash) {
		return nil, errs.New(errs.UpdateCustomer, errs.CodeOldPasswordFail, "Incorrect old password!")
	}
	if err := s.policy.Check(newPassword); err != nil {
		return nil, err
	}

	hash := s.passwords.EncryptWithSalt(newPassword, a.Salt)
	if _, err := s.accounts.ChangePassword(ctx, a.ID, hash, s.now()); err != nil {
		return nil, err
	}
	updated := *a
	updated.PasswordHash = hash
	return &updated, nil
}
