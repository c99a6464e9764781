package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/internal/relstore"
)

const sessionName = "lectern-login"

// SessionMiddleware resolves the session cookie to a user and stores it
// in the request context. Unauthenticated requests carry the anonymous
// user.
func (a *App) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		user := cms.AnonymousUser()

		session, _ := a.Rel.Get(req, sessionName)
		if session != nil && !session.IsNew {
			if screenname, ok := session.Values["username"].(string); ok {
				found, err := a.Rel.SelectUserByScreenName(screenname)
				if err == nil {
					user = found
				} else if !errors.Is(err, relstore.ErrUserNotFound) {
					slog.Warn("session user lookup failed", "user", screenname, "error", err)
				}
			}
		}

		ctx := context.WithValue(req.Context(), cms.UserKey, user)
		next.ServeHTTP(rw, req.WithContext(ctx))
	})
}

// currentUser returns the request's user, anonymous when none is set.
func currentUser(req *http.Request) *cms.User {
	if user, ok := req.Context().Value(cms.UserKey).(*cms.User); ok {
		return user
	}
	return cms.AnonymousUser()
}

// LoginHandler authenticates a screenname/password pair and establishes a
// session.
func (a *App) LoginHandler(rw http.ResponseWriter, req *http.Request) {
	var creds struct {
		ScreenName string `json:"screenname"`
		Password   string `json:"password"`
	}
	if err := decodeJSON(req, &creds); err != nil {
		writeError(rw, cms.NewOpError(cms.CodeValidation, "malformed login payload", err))
		return
	}

	user, err := a.Rel.SelectUserByScreenName(creds.ScreenName)
	if err != nil || user.CheckPassword(creds.Password) != nil {
		writeJSON(rw, http.StatusUnauthorized, map[string]string{
			"code":    "UNAUTHORIZED",
			"message": "incorrect screenname or password",
		})
		return
	}

	session, _ := a.Rel.New(req, sessionName)
	session.Values["username"] = user.ScreenName
	if err := a.Rel.Save(req, rw, session); err != nil {
		writeError(rw, err)
		return
	}

	writeJSON(rw, http.StatusOK, map[string]string{"id": user.ID, "screenname": user.ScreenName})
}

// RegisterHandler creates a new user account.
func (a *App) RegisterHandler(rw http.ResponseWriter, req *http.Request) {
	var payload struct {
		ScreenName string `json:"screenname"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if err := decodeJSON(req, &payload); err != nil {
		writeError(rw, cms.NewOpError(cms.CodeValidation, "malformed registration payload", err))
		return
	}
	if payload.ScreenName == "" {
		writeError(rw, cms.NewOpError(cms.CodeValidation, "screenname is required", nil))
		return
	}
	if len(payload.Password) < a.Config.MinimumPasswordLength {
		writeError(rw, cms.NewOpError(cms.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", a.Config.MinimumPasswordLength), nil))
		return
	}

	if _, err := a.Rel.SelectUserByScreenName(payload.ScreenName); err == nil {
		writeError(rw, cms.NewOpError(cms.CodeValidation, "screenname is taken", nil))
		return
	} else if !errors.Is(err, relstore.ErrUserNotFound) {
		writeError(rw, err)
		return
	}

	user := &cms.User{
		ScreenName:  payload.ScreenName,
		Email:       payload.Email,
		RawPassword: payload.Password,
	}
	if err := user.SetPasswordHash(); err != nil {
		writeError(rw, err)
		return
	}
	if err := a.Rel.InsertUser(user); err != nil {
		writeError(rw, err)
		return
	}

	writeJSON(rw, http.StatusCreated, map[string]string{"id": user.ID, "screenname": user.ScreenName})
}

// LogoutHandler tears down the current session.
func (a *App) LogoutHandler(rw http.ResponseWriter, req *http.Request) {
	session, _ := a.Rel.Get(req, sessionName)
	if session != nil {
		if err := a.Rel.Delete(req, rw, session); err != nil {
			slog.Warn("failed to delete session", "error", err)
		}
	}
	rw.WriteHeader(http.StatusNoContent)
}
