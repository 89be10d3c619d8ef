package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/grovetools/pantry/pkg/models"
)

// ErrBadCredentials is returned by FakeAuth for unknown users or wrong passwords.
var ErrBadCredentials = errors.New("bad credentials")

// ErrNoSession is returned by FakeAuth.Status when nobody is logged in.
var ErrNoSession = errors.New("no session")

// FakeAuth is an in-memory authentication service.
type FakeAuth struct {
	mu        sync.Mutex
	passwords map[string]string
	users     map[string]models.UserInfo
	current   *models.UserInfo

	// Gate, when non-nil, must yield a value before any call completes.
	// Calls abort with the context error if their context ends first.
	Gate chan struct{}

	calls map[string]int
}

// NewFakeAuth creates a service that knows the given users. Each user's
// password is their name with "-pw" appended.
func NewFakeAuth(users ...models.UserInfo) *FakeAuth {
	f := &FakeAuth{
		passwords: map[string]string{},
		users:     map[string]models.UserInfo{},
		calls:     map[string]int{},
	}
	for _, u := range users {
		f.passwords[u.Name] = u.Name + "-pw"
		f.users[u.Name] = u
	}
	return f
}

// SetCurrent makes user the logged in user, as if a session cookie existed.
func (f *FakeAuth) SetCurrent(user *models.UserInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = user
}

func (f *FakeAuth) wait(ctx context.Context, op string) error {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
	return nil
}

// CallCount returns how many op calls completed.
func (f *FakeAuth) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeAuth) Status(ctx context.Context) (models.UserInfo, error) {
	if err := f.wait(ctx, "status"); err != nil {
		return models.UserInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return models.UserInfo{}, ErrNoSession
	}
	return *f.current, nil
}

func (f *FakeAuth) Login(ctx context.Context, login models.UserLogin) (models.UserInfo, error) {
	if err := f.wait(ctx, "login"); err != nil {
		return models.UserInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name := login.Identifier.Name
	if login.Identifier.UUID != "" {
		for n, u := range f.users {
			if u.UUID == login.Identifier.UUID {
				name = n
			}
		}
	}
	if pw, ok := f.passwords[name]; !ok || pw != login.Password {
		return models.UserInfo{}, ErrBadCredentials
	}
	user := f.users[name]
	f.current = &user
	return user, nil
}

func (f *FakeAuth) Signup(ctx context.Context, signup models.UserSignup) (models.UserInfo, error) {
	if err := f.wait(ctx, "signup"); err != nil {
		return models.UserInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[signup.Name]; exists {
		return models.UserInfo{}, errors.New("user exists")
	}
	user := models.UserInfo{UUID: "uuid-" + signup.Name, Name: signup.Name}
	f.users[signup.Name] = user
	f.passwords[signup.Name] = signup.Password
	f.current = &user
	return user, nil
}

func (f *FakeAuth) Logout(ctx context.Context) (models.StatusNotice, error) {
	if err := f.wait(ctx, "logout"); err != nil {
		return models.StatusNotice{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = nil
	return models.StatusNotice{Message: "logged out"}, nil
}
