package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	pkgcrypto "github.com/and161185/grocer/internal/crypto"
	"github.com/and161185/grocer/internal/errs"
	"github.com/and161185/grocer/internal/token"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

var alice = SignupInput{
	FirstName:     "Alice",
	LastName:      "Lee",
	Email:         "a@b.com",
	ContactNumber: "9990001111",
	Password:      "Passw0rd!",
}

type env struct {
	clk      *clock
	accounts *fakeAccounts
	sessions *fakeSessions
	svc      *CustomerService
}

func newEnv(opts ...Option) *env {
	clk := newClock(t0)
	sessions := newFakeSessions()
	accounts := newFakeAccounts(sessions)
	tokens := token.New([]byte("test-secret"), token.WithClock(clk.Now))
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	return &env{
		clk:      clk,
		accounts: accounts,
		sessions: sessions,
		svc:      NewCustomerService(accounts, sessions, &fakePasswords{}, tokens, opts...),
	}
}

func wantCode(t *testing.T, err error, kind *errs.Error, code string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("want kind %v, got %v", kind.Kind, err)
	}
	if got := errs.CodeOf(err); got != code {
		t.Fatalf("want code %s, got %s (%v)", code, got, err)
	}
}

func TestSignup_Validation(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()

	cases := map[string]struct {
		mut  func(*SignupInput)
		kind *errs.Error
		code string
	}{
		"no first name": {func(in *SignupInput) { in.FirstName = "" }, errs.ErrMissingField, errs.CodeMissingField},
		"no last name":  {func(in *SignupInput) { in.LastName = "" }, errs.ErrMissingField, errs.CodeMissingField},
		"no contact":    {func(in *SignupInput) { in.ContactNumber = "" }, errs.ErrMissingField, errs.CodeMissingField},
		"no password":   {func(in *SignupInput) { in.Password = "" }, errs.ErrMissingField, errs.CodeMissingField},
		"bad email":     {func(in *SignupInput) { in.Email = "a@b" }, errs.ErrInvalidEmail, errs.CodeInvalidEmail},
		"empty email":   {func(in *SignupInput) { in.Email = "" }, errs.ErrInvalidEmail, errs.CodeInvalidEmail},
		"missing wins": {func(in *SignupInput) {
			in.FirstName = ""
			in.Email = "nope"
		}, errs.ErrMissingField, errs.CodeMissingField},
	}
	for name, tc := range cases {
		in := alice
		tc.mut(&in)
		_, err := e.svc.Signup(ctx, in)
		if err == nil {
			t.Fatalf("%s: want error", name)
		}
		wantCode(t, err, tc.kind, tc.code)
	}
	if len(e.accounts.byID) != 0 {
		t.Fatalf("validation failure persisted %d accounts", len(e.accounts.byID))
	}
}

func TestSignup_PersistsHashedAccount(t *testing.T) {
	t.Parallel()
	e := newEnv()

	a, err := e.svc.Signup(context.Background(), alice)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if a.UUID == "" || a.ID == 0 {
		t.Fatalf("ids not set: %+v", a)
	}
	if a.Salt == "" || a.PasswordHash == "" || a.PasswordHash == alice.Password {
		t.Fatalf("password not hashed: %+v", a)
	}
	stored := e.accounts.byID[a.ID]
	if stored.PasswordHash != a.PasswordHash || stored.ContactNumber != alice.ContactNumber {
		t.Fatalf("stored=%+v", stored)
	}
}

func TestSignup_DuplicateContact(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()

	if _, err := e.svc.Signup(ctx, alice); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	other := alice
	other.FirstName = "Bob"
	_, err := e.svc.Signup(ctx, other)
	wantCode(t, err, errs.ErrContactAlreadyExists, errs.CodeContactExists)
	if len(e.accounts.byID) != 1 {
		t.Fatalf("row count changed: %d", len(e.accounts.byID))
	}
}

func TestSignup_InfrastructureFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := newEnv()
	e.accounts.createErr = errs.Infra("create customer", errors.New("conn reset"))
	if _, err := e.svc.Signup(ctx, alice); !errors.Is(err, errs.ErrInfrastructure) {
		t.Fatalf("want infrastructure error, got %v", err)
	}

	e = newEnv(WithIDGenerator(func() (string, error) { return "", errors.New("entropy") }))
	if _, err := e.svc.Signup(ctx, alice); !errors.Is(err, errs.ErrInfrastructure) {
		t.Fatalf("want infrastructure error on id failure, got %v", err)
	}
}

func TestLogin_AfterSignup(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	e.clk.Advance(500 * time.Millisecond)

	acc, err := e.svc.Signup(ctx, alice)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	sess, who, err := e.svc.Login(ctx, "9990001111", "Passw0rd!", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.UUID != acc.UUID || who.UUID != acc.UUID || sess.AccountID != acc.ID {
		t.Fatalf("session not bound to account: %+v", sess)
	}
	if !sess.LoginAt.Equal(t0) {
		t.Fatalf("login at %v, want %v", sess.LoginAt, t0)
	}
	if got := sess.ExpiresAt.Sub(sess.LoginAt); got != SessionLifetime {
		t.Fatalf("lifetime=%v", got)
	}
	if sess.LogoutAt != nil || sess.AccessToken == "" {
		t.Fatalf("bad session: %+v", sess)
	}
	if _, ok := e.sessions.byToken[sess.AccessToken]; !ok {
		t.Fatalf("session not persisted")
	}
}

func TestLogin_Failures(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	if _, err := e.svc.Signup(ctx, alice); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	_, _, err := e.svc.Login(ctx, "9990001111", "wrong", "")
	wantCode(t, err, errs.ErrAuthentication, errs.CodePasswordMismatch)

	_, _, err = e.svc.Login(ctx, "0000000000", "Passw0rd!", "")
	wantCode(t, err, errs.ErrAuthentication, errs.CodeUnknownContact)

	if len(e.sessions.byToken) != 0 {
		t.Fatalf("failed login created a session")
	}

	e.accounts.getErr = errs.Infra("get customer", errors.New("down"))
	if _, _, err := e.svc.Login(ctx, "9990001111", "Passw0rd!", ""); !errors.Is(err, errs.ErrInfrastructure) {
		t.Fatalf("want infrastructure error, got %v", err)
	}
}

func TestLogin_ConcurrentSessionsAreIndependent(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	if _, err := e.svc.Signup(ctx, alice); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	s1, _, err := e.svc.Login(ctx, alice.ContactNumber, alice.Password, "")
	if err != nil {
		t.Fatalf("Login 1: %v", err)
	}
	s2, _, err := e.svc.Login(ctx, alice.ContactNumber, alice.Password, "")
	if err != nil {
		t.Fatalf("Login 2: %v", err)
	}
	if s1.AccessToken == s2.AccessToken {
		t.Fatalf("two logins in the same second share a token")
	}
	if _, err := e.svc.Logout(ctx, s1.AccessToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := e.svc.Authorize(ctx, s2.AccessToken); err != nil {
		t.Fatalf("second session must survive logout of the first: %v", err)
	}
}

func TestLogin_RateLimiter(t *testing.T) {
	t.Parallel()
	lim := &fakeLimiter{allowOK: true}
	e := newEnv(WithLimiter(lim))
	ctx := context.Background()
	if _, err := e.svc.Signup(ctx, alice); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	lim.allowErr = errors.New("lim-err")
	if _, _, err := e.svc.Login(ctx, alice.ContactNumber, alice.Password, "1.2.3.4"); !errors.Is(err, errs.ErrInfrastructure) {
		t.Fatalf("want limiter error surfaced as infrastructure, got %v", err)
	}
	lim.allowErr = nil

	lim.allowOK = false
	_, _, err := e.svc.Login(ctx, alice.ContactNumber, alice.Password, "1.2.3.4")
	wantCode(t, err, errs.ErrRateLimited, errs.CodeRateLimited)
	lim.allowOK = true

	lim.failBlocked = true
	_, _, err = e.svc.Login(ctx, alice.ContactNumber, "wrong", "1.2.3.4")
	wantCode(t, err, errs.ErrRateLimited, errs.CodeRateLimited)
	_, _, err = e.svc.Login(ctx, "0000000000", "x", "1.2.3.4")
	wantCode(t, err, errs.ErrRateLimited, errs.CodeRateLimited)

	lim.failBlocked = false
	lim.failErr = errors.New("ignored")
	_, _, err = e.svc.Login(ctx, alice.ContactNumber, "wrong", "1.2.3.4")
	wantCode(t, err, errs.ErrAuthentication, errs.CodePasswordMismatch)
	lim.failErr = nil

	if _, _, err := e.svc.Login(ctx, alice.ContactNumber, alice.Password, "1.2.3.4"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if lim.successCalls != 1 || lim.failureCalls != 3 {
		t.Fatalf("success=%d failure=%d", lim.successCalls, lim.failureCalls)
	}
	if lim.lastContact != alice.ContactNumber {
		t.Fatalf("limiter keyed by %q", lim.lastContact)
	}
}

func loginAlice(t *testing.T, e *env) string {
	t.Helper()
	ctx := context.Background()
	if _, err := e.svc.Signup(ctx, alice); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	s, _, err := e.svc.Login(ctx, alice.ContactNumber, alice.Password, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return s.AccessToken
}

func TestAuthorize_Lifecycle(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	tok := loginAlice(t, e)

	a, err := e.svc.Authorize(ctx, tok)
	if err != nil {
		t.Fatalf("Authorize after login: %v", err)
	}
	if a.ContactNumber != alice.ContactNumber {
		t.Fatalf("wrong account %+v", a)
	}

	_, err = e.svc.Authorize(ctx, "fabricated")
	wantCode(t, err, errs.ErrAuthorization, errs.CodeUnknownToken)
	_, err = e.svc.Authorize(ctx, "")
	wantCode(t, err, errs.ErrAuthorization, errs.CodeUnknownToken)

	out, err := e.svc.Logout(ctx, tok)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if out.LogoutAt == nil || !out.LogoutAt.Equal(t0) {
		t.Fatalf("logout_at=%v", out.LogoutAt)
	}
	_, err = e.svc.Authorize(ctx, tok)
	wantCode(t, err, errs.ErrAuthorization, errs.CodeLoggedOut)
	_, err = e.svc.Logout(ctx, tok)
	wantCode(t, err, errs.ErrAuthorization, errs.CodeLoggedOut)
}

func TestAuthorize_ExpiryBoundary(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	tok := loginAlice(t, e)

	e.clk.Advance(SessionLifetime - time.Second)
	if _, err := e.svc.Authorize(ctx, tok); err != nil {
		t.Fatalf("session must be active before expiry: %v", err)
	}
	e.clk.Advance(time.Second)
	_, err := e.svc.Authorize(ctx, tok)
	wantCode(t, err, errs.ErrAuthorization, errs.CodeSessionExp)

	_, err = e.svc.Logout(ctx, tok)
	wantCode(t, err, errs.ErrAuthorization, errs.CodeSessionExp)
}

func TestAuthorize_LoggedOutWinsOverExpired(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	tok := loginAlice(t, e)

	if _, err := e.svc.Logout(ctx, tok); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	e.clk.Advance(SessionLifetime + time.Hour)
	_, err := e.svc.Authorize(ctx, tok)
	wantCode(t, err, errs.ErrAuthorization, errs.CodeLoggedOut)
}

func TestListSessions(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	first := loginAlice(t, e)

	e.clk.Advance(time.Minute)
	s2, _, err := e.svc.Login(ctx, alice.ContactNumber, alice.Password, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := e.svc.Logout(ctx, first); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	list, err := e.svc.ListSessions(ctx, s2.AccessToken)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("want 2 sessions, got %d", len(list))
	}
	now := e.clk.Now()
	if list[0].AccessToken != s2.AccessToken || !list[0].Active(now) {
		t.Fatalf("newest session first and active: %+v", list[0])
	}
	if list[1].AccessToken != first || list[1].Active(now) {
		t.Fatalf("logged out session must be inactive: %+v", list[1])
	}

	_, err = e.svc.ListSessions(ctx, first)
	wantCode(t, err, errs.ErrAuthorization, errs.CodeLoggedOut)
	_, err = e.svc.ListSessions(ctx, "")
	wantCode(t, err, errs.ErrAuthorization, errs.CodeUnknownToken)
}

func TestAuthorize_TokenMismatchWithStoredSession(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	tok := loginAlice(t, e)

	// a row whose token was not signed for its account
	forged := *e.sessions.byToken[tok]
	forged.AccessToken = "x.y.z"
	e.sessions.byToken[forged.AccessToken] = &forged
	_, err := e.svc.Authorize(ctx, forged.AccessToken)
	wantCode(t, err, errs.ErrAuthorization, errs.CodeUnknownToken)
}

func TestLogout_PropagatesInfrastructure(t *testing.T) {
	t.Parallel()
	e := newEnv()
	tok := loginAlice(t, e)

	e.sessions.getErr = errs.Infra("get session", errors.New("down"))
	if _, err := e.svc.Logout(context.Background(), tok); !errors.Is(err, errs.ErrInfrastructure) {
		t.Fatalf("want infrastructure error, got %v", err)
	}
}

func TestChangePassword_WrongOldPasswordLeavesHash(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	tok := loginAlice(t, e)
	acc, _ := e.svc.Authorize(ctx, tok)

	_, err := e.svc.ChangePassword(ctx, "not-it", "N3w-Passw0rd", acc)
	wantCode(t, err, errs.ErrUpdateCustomer, errs.CodeOldPasswordFail)

	if _, _, err := e.svc.Login(ctx, alice.ContactNumber, alice.Password, ""); err != nil {
		t.Fatalf("original password must still work: %v", err)
	}
	if _, err := e.svc.Authorize(ctx, tok); err != nil {
		t.Fatalf("failed change must not revoke sessions: %v", err)
	}
}

func TestChangePassword_Policy(t *testing.T) {
	t.Parallel()
	e := newEnv(WithPasswordPolicy(PasswordPolicy{MinLength: 10}))
	ctx := context.Background()
	tok := loginAlice(t, e)
	acc, _ := e.svc.Authorize(ctx, tok)

	for _, pw := range []string{"Sh0rt!", "Passw0rd!", "alllowercase1!", "NoDigitsHere!", "N0Specials1234"} {
		_, err := e.svc.ChangePassword(ctx, alice.Password, pw, acc)
		wantCode(t, err, errs.ErrWeakPassword, errs.CodeWeakPassword)
	}
	_, err := e.svc.ChangePassword(ctx, "", "x", acc)
	wantCode(t, err, errs.ErrUpdateCustomer, errs.CodeEmptyPassword)

	// an empty new password is a policy failure once the old one is verified
	_, err = e.svc.ChangePassword(ctx, alice.Password, "", acc)
	wantCode(t, err, errs.ErrWeakPassword, errs.CodeWeakPassword)
	_, err = e.svc.ChangePassword(ctx, "wrong", "", acc)
	wantCode(t, err, errs.ErrUpdateCustomer, errs.CodeOldPasswordFail)
}

func TestChangePassword_RevokesSessionsAndRotatesKey(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	tok := loginAlice(t, e)
	acc, _ := e.svc.Authorize(ctx, tok)

	updated, err := e.svc.ChangePassword(ctx, alice.Password, "N3w-Passw0rd", acc)
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if updated.Salt != acc.Salt || updated.PasswordHash == acc.PasswordHash {
		t.Fatalf("salt must be kept and hash replaced: %+v", updated)
	}

	_, err = e.svc.Authorize(ctx, tok)
	wantCode(t, err, errs.ErrAuthorization, errs.CodeLoggedOut)

	// even a session that escaped revocation no longer verifies under the new key
	e.sessions.byToken[tok].LogoutAt = nil
	_, err = e.svc.Authorize(ctx, tok)
	wantCode(t, err, errs.ErrAuthorization, errs.CodeUnknownToken)

	_, _, err = e.svc.Login(ctx, alice.ContactNumber, alice.Password, "")
	wantCode(t, err, errs.ErrAuthentication, errs.CodePasswordMismatch)
	s, _, err := e.svc.Login(ctx, alice.ContactNumber, "N3w-Passw0rd", "")
	if err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := e.svc.Authorize(ctx, s.AccessToken); err != nil {
		t.Fatalf("Authorize new session: %v", err)
	}
}

func TestUpdateCustomer(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	tok := loginAlice(t, e)

	_, err := e.svc.UpdateCustomer(ctx, tok, "", "X")
	wantCode(t, err, errs.ErrUpdateCustomer, errs.CodeEmptyFirstName)

	a, err := e.svc.UpdateCustomer(ctx, tok, "Alicia", "")
	if err != nil {
		t.Fatalf("UpdateCustomer: %v", err)
	}
	if a.FirstName != "Alicia" || a.LastName != "" {
		t.Fatalf("got %+v", a)
	}
	got, err := e.svc.GetCustomer(ctx, tok)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if got.FirstName != "Alicia" {
		t.Fatalf("profile not persisted: %+v", got)
	}

	_, err = e.svc.UpdateCustomer(ctx, tok, strings.Repeat("A", 31), "B")
	wantCode(t, err, errs.ErrUpdateCustomer, errs.CodeNameTooLong)
	_, err = e.svc.UpdateCustomer(ctx, tok, "A", strings.Repeat("B", 31))
	wantCode(t, err, errs.ErrUpdateCustomer, errs.CodeNameTooLong)
	if got, _ := e.svc.GetCustomer(ctx, tok); got.FirstName != "Alicia" {
		t.Fatalf("rejected update changed the profile: %+v", got)
	}

	_, err = e.svc.UpdateCustomer(ctx, "bogus", "A", "B")
	wantCode(t, err, errs.ErrAuthorization, errs.CodeUnknownToken)
}

func TestCustomerService_RealProviders(t *testing.T) {
	t.Parallel()
	clk := newClock(t0)
	sessions := newFakeSessions()
	accounts := newFakeAccounts(sessions)
	svc := NewCustomerService(accounts, sessions,
		pkgcrypto.NewPasswordProvider(),
		token.New([]byte("server-secret"), token.WithClock(clk.Now)),
		WithClock(clk.Now),
	)
	ctx := context.Background()

	acc, err := svc.Signup(ctx, alice)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, _, err := svc.Login(ctx, alice.ContactNumber, "Passw0rd?", ""); !errors.Is(err, errs.ErrAuthentication) {
		t.Fatalf("want authentication error, got %v", err)
	}
	s, _, err := svc.Login(ctx, alice.ContactNumber, alice.Password, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	got, err := svc.Authorize(ctx, s.AccessToken)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if got.UUID != acc.UUID {
		t.Fatalf("uuid=%s want %s", got.UUID, acc.UUID)
	}
}
