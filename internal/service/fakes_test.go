package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/and161185/grocer/internal/errs"
	"github.com/and161185/grocer/internal/limiter"
	"github.com/and161185/grocer/internal/model"
	"github.com/and161185/grocer/internal/repository"
)

/************ clock ************/

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

/************ accounts ************/

type fakeAccounts struct {
	byID     map[int64]*model.Account
	sessions *fakeSessions
	nextID   int64

	createErr error
	getErr    error
	changeErr error
}

var _ repository.AccountRepository = (*fakeAccounts)(nil)

func newFakeAccounts(sessions *fakeSessions) *fakeAccounts {
	return &fakeAccounts{byID: map[int64]*model.Account{}, sessions: sessions}
}

func (f *fakeAccounts) Create(_ context.Context, a *model.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, x := range f.byID {
		if x.ContactNumber == a.ContactNumber {
			return errs.ErrAlreadyExists
		}
	}
	f.nextID++
	a.ID = f.nextID
	cpy := *a
	f.byID[a.ID] = &cpy
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (f *fakeAccounts) GetByContact(_ context.Context, contact string) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.byID {
		if a.ContactNumber == contact {
			c := *a
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, a *model.Account) error {
	cur, ok := f.byID[a.ID]
	if !ok {
		return errs.ErrNotFound
	}
	cur.FirstName, cur.LastName = a.FirstName, a.LastName
	return nil
}

func (f *fakeAccounts) ChangePassword(_ context.Context, id int64, hash string, at time.Time) (int64, error) {
	if f.changeErr != nil {
		return 0, f.changeErr
	}
	a, ok := f.byID[id]
	if !ok {
		return 0, errs.ErrNotFound
	}
	a.PasswordHash = hash
	var n int64
	if f.sessions != nil {
		for _, s := range f.sessions.byToken {
			if s.AccountID == id && s.LogoutAt == nil {
				t := at
				s.LogoutAt = &t
				n++
			}
		}
	}
	return n, nil
}

/************ sessions ************/

type fakeSessions struct {
	byToken map[string]*model.Session
	nextID  int64

	createErr error
	getErr    error
}

var _ repository.SessionRepository = (*fakeSessions)(nil)

func newFakeSessions() *fakeSessions { return &fakeSessions{byToken: map[string]*model.Session{}} }

func (f *fakeSessions) Create(_ context.Context, s *model.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byToken[s.AccessToken]; ok {
		return errs.ErrAlreadyExists
	}
	f.nextID++
	s.ID = f.nextID
	cpy := *s
	f.byToken[s.AccessToken] = &cpy
	return nil
}

func (f *fakeSessions) GetByToken(_ context.Context, token string) (*model.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.byToken[token]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (f *fakeSessions) ListByAccount(_ context.Context, accountID int64) ([]model.Session, error) {
	var out []model.Session
	for _, s := range f.byToken {
		if s.AccountID == accountID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeSessions) MarkLoggedOut(_ context.Context, token string, at time.Time) (*model.Session, error) {
	s, ok := f.byToken[token]
	if !ok || s.LogoutAt != nil {
		return nil, errs.ErrNotFound
	}
	t := at
	s.LogoutAt = &t
	c := *s
	return &c, nil
}

/************ addresses ************/

type fakeAddresses struct {
	byID   map[int64]*model.Address
	owners map[int64]int64 // address -> account
	nextID int64

	createErr error
}

var _ repository.AddressRepository = (*fakeAddresses)(nil)

func newFakeAddresses() *fakeAddresses {
	return &fakeAddresses{byID: map[int64]*model.Address{}, owners: map[int64]int64{}}
}

func (f *fakeAddresses) Create(_ context.Context, accountID int64, a *model.Address) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	a.ID = f.nextID
	cpy := *a
	f.byID[a.ID] = &cpy
	f.owners[a.ID] = accountID
	return nil
}

func (f *fakeAddresses) GetByUUID(_ context.Context, uuid string) (*model.Address, error) {
	for _, a := range f.byID {
		if a.UUID == uuid {
			c := *a
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeAddresses) IsOwner(_ context.Context, accountID, addressID int64) (bool, error) {
	return f.owners[addressID] == accountID, nil
}

func (f *fakeAddresses) ListByAccount(_ context.Context, accountID int64) ([]model.Address, error) {
	out := make([]model.Address, 0)
	for id, a := range f.byID {
		if f.owners[id] == accountID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAddresses) Delete(_ context.Context, addressID int64) error {
	if _, ok := f.byID[addressID]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, addressID)
	delete(f.owners, addressID)
	return nil
}

/************ password provider ************/

// fakePasswords hashes with sha256 so tests do not pay for Argon2id.
type fakePasswords struct {
	n       int
	failErr error
}

var _ PasswordProvider = (*fakePasswords)(nil)

func (p *fakePasswords) Encrypt(password string) (string, string, error) {
	if p.failErr != nil {
		return "", "", p.failErr
	}
	p.n++
	salt := fmt.Sprintf("salt-%d", p.n)
	return salt, p.EncryptWithSalt(password, salt), nil
}

func (p *fakePasswords) EncryptWithSalt(password, salt string) string {
	h := sha256.Sum256([]byte(salt + "|" + password))
	return hex.EncodeToString(h[:])
}

func (p *fakePasswords) Matches(password, salt, hash string) bool {
	return p.EncryptWithSalt(password, salt) == hash
}

/************ limiter ************/

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
	lastContact  string
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, contact string, _ []byte) (bool, time.Duration, error) {
	l.allowCalls++
	l.lastContact = contact
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}
