package session

import (
	"context"

	"github.com/grovetools/pantry/pkg/models"
)

// Request is one of GetAuthStatus, Login, Signup or Logout.
type Request interface {
	sessionRequest()
}

// GetAuthStatus asks the auth service whether a session already exists.
type GetAuthStatus struct{}

// Login authenticates with credentials.
type Login struct {
	models.UserLogin
}

// Signup registers a new user and logs in as them.
type Signup struct {
	models.UserSignup
}

// Logout ends the session.
type Logout struct{}

func (GetAuthStatus) sessionRequest() {}
func (Login) sessionRequest()         {}
func (Signup) sessionRequest()        {}
func (Logout) sessionRequest()        {}

// Authenticator is the external auth service.
type Authenticator interface {
	Status(ctx context.Context) (models.UserInfo, error)
	Login(ctx context.Context, login models.UserLogin) (models.UserInfo, error)
	Signup(ctx context.Context, signup models.UserSignup) (models.UserInfo, error)
	Logout(ctx context.Context) (models.StatusNotice, error)
}
