// Package token issues and validates HS256 session tokens. The signing key of
// every token is derived from the owning account's password hash, so a password
// change invalidates all tokens signed under the previous hash.
package token

import (
	"crypto/sha256"
	"errors"
	"io"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/and161185/grocer/internal/errs"
)

const (
	issuer  = "grocer"
	keyInfo = "grocer session token v1"
	keyLen  = 32
)

// Claims binds a subject (account visible id) and the validity window of a session.
type Claims struct {
	jwt.RegisteredClaims
}

// Provider signs and validates tokens. The zero value is not usable; use New.
type Provider struct {
	secret []byte
	now    func() time.Time
	nonce  func() string
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithNonce overrides the token id generator. A constant nonce makes
// Generate fully deterministic.
func WithNonce(nonce func() string) Option {
	return func(p *Provider) { p.nonce = nonce }
}

// New constructs a Provider. secret is mixed into every derived key.
func New(secret []byte, opts ...Option) *Provider {
	p := &Provider{
		secret: secret,
		now:    time.Now,
		nonce:  func() string { return uuid.Must(uuid.NewV4()).String() },
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Key derives the HMAC key for an account from its password hash.
func (p *Provider) Key(passwordHash string) []byte {
	r := hkdf.New(sha256.New, []byte(passwordHash), p.secret, []byte(keyInfo))
	k := make([]byte, keyLen)
	if _, err := io.ReadFull(r, k); err != nil {
		// hkdf only fails past 255*HashLen bytes of output.
		panic(err)
	}
	return k
}

// ErrFractionalExpiry is returned by Generate for an expiry that is not a whole
// second: exp is encoded in seconds and would otherwise end the token early.
var ErrFractionalExpiry = errors.New("token: expiry must be a whole second")

// Generate creates a signed token for subject valid in [issuedAt, expiresAt).
// Timestamps are encoded with second precision; expiresAt must be a whole second.
func (p *Provider) Generate(passwordHash, subject string, issuedAt, expiresAt time.Time) (string, error) {
	if expiresAt.Nanosecond() != 0 {
		return "", ErrFractionalExpiry
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        p.nonce(),
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{subject},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(p.Key(passwordHash))
}

// DecodeAndValidate verifies the signature with the key derived from passwordHash and
// returns the subject. It fails with ErrExpiredToken when now >= exp and with
// ErrMalformedToken for anything that cannot be parsed or verified.
func (p *Provider) DecodeAndValidate(passwordHash, tokenString string) (string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return p.Key(passwordHash), nil
	},
		jwt.WithTimeFunc(p.now),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errs.New(errs.ExpiredToken, errs.CodeExpiredToken, "token has expired")
		}
		return "", &errs.Error{Kind: errs.MalformedToken, Code: errs.CodeMalformedToken, Msg: "token is malformed", Err: err}
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", errs.New(errs.MalformedToken, errs.CodeMalformedToken, "token is malformed")
	}
	return claims.Subject, nil
}
