package server

import (
	"net/http"

	"github.com/alexedwards/flow"

	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/internal/session"
	"github.com/grovetools/pantry/pkg/models"
)

func wantsWait(r *http.Request) bool {
	switch r.URL.Query().Get("wait") {
	case "1", "true", "yes":
		return true
	}
	return false
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	st := s.session.Current()
	if wantsWait(r) {
		var err error
		if st, err = s.session.Settle(r.Context()); err != nil {
			writeError(w, errors.Wrap(err, errors.ErrCodeInternal, "session unavailable"), http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusOK, st)
}

// handleSessionOp serves POST /api/session/{probe,login,signup,logout}. The
// reply is the transitional state unless ?wait=1 asks for the settled one.
func (s *Server) handleSessionOp(w http.ResponseWriter, r *http.Request) {
	op := flow.Param(r.Context(), "op")

	var req session.Request
	switch op {
	case "probe":
		req = session.GetAuthStatus{}
	case "logout":
		req = session.Logout{}
	case "login":
		var login models.UserLogin
		if err := decodeBody(r, &login); err != nil {
			writeError(w, err, 0)
			return
		}
		req = session.Login{UserLogin: login}
	case "signup":
		var signup models.UserSignup
		if err := decodeBody(r, &signup); err != nil {
			writeError(w, err, 0)
			return
		}
		req = session.Signup{UserSignup: signup}
	default:
		writeError(w, errors.InvalidInput("unknown session operation: "+op), http.StatusNotFound)
		return
	}

	s.logger.WithField("op", op).Debug("Session operation requested")
	st, err := s.session.Send(r.Context(), req)
	if err == nil && wantsWait(r) && st.Transitional() {
		st, err = s.session.Settle(r.Context())
	}
	if err != nil {
		writeError(w, errors.Wrap(err, errors.ErrCodeInternal, "session unavailable"), http.StatusServiceUnavailable)
		return
	}
	status := http.StatusOK
	if st.Transitional() {
		status = http.StatusAccepted
	}
	writeJSON(w, status, st)
}
