// Package session tracks whether the local user is authenticated.
package session

import "github.com/grovetools/pantry/pkg/models"

// Status is the phase of the session.
type Status string

const (
	StatusUnknown    Status = "unknown"
	StatusProbing    Status = "probing"
	StatusLoggedOut  Status = "logged_out"
	StatusLoggingIn  Status = "logging_in"
	StatusLoggedIn   Status = "logged_in"
	StatusLoggingOut Status = "logging_out"
	StatusError      Status = "error"
)

// State is an immutable snapshot of the session. User is set only when
// Status is StatusLoggedIn and Error only when Status is StatusError.
type State struct {
	Status Status           `json:"status"`
	User   *models.UserInfo `json:"user,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Unknown is the state before anything has been asked of the auth service.
func Unknown() State { return State{Status: StatusUnknown} }

// LoggedIn returns an authenticated state for user.
func LoggedIn(user models.UserInfo) State {
	return State{Status: StatusLoggedIn, User: &user}
}

// LoggedOut returns the unauthenticated state.
func LoggedOut() State { return State{Status: StatusLoggedOut} }

// Failed returns an error state carrying err's message.
func Failed(err error) State {
	return State{Status: StatusError, Error: err.Error()}
}

// CurrentUser returns the authenticated user, if any.
func (s State) CurrentUser() (models.UserInfo, bool) {
	if s.Status != StatusLoggedIn || s.User == nil {
		return models.UserInfo{}, false
	}
	return *s.User, true
}

// Transitional reports whether an auth operation is in flight.
func (s State) Transitional() bool {
	switch s.Status {
	case StatusProbing, StatusLoggingIn, StatusLoggingOut:
		return true
	}
	return false
}

func (s State) String() string {
	switch {
	case s.User != nil:
		return string(s.Status) + "(" + s.User.Name + ")"
	case s.Error != "":
		return string(s.Status) + "(" + s.Error + ")"
	}
	return string(s.Status)
}
