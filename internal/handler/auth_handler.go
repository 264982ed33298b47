/*
Package handler provides HTTP handler functions for member authentication and management.
*/
package handler

import (
	"errors"
	"net/http"
	"regexp"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"kindred/internal/app/member"
	"kindred/internal/pkg/auth/jwt"
	"kindred/internal/pkg/errs"
	"kindred/internal/pkg/logx"
	"kindred/internal/pkg/req"
	"kindred/internal/pkg/resp"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	minAge = 13
	maxAge = 120
)

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Age      int    `json:"age"`
	Password string `json:"password"`
}

// HandleSignup processes the request to create a new member account.
// New members start with empty relationship sets.
func HandleSignup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identity := jwt.GetPayloadFromContext(r); identity != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input SignupInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		nameLen := utf8.RuneCountInString(input.Name)
		if nameLen < 1 || nameLen > 50 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidName))
			return
		}

		if !emailRegex.MatchString(input.Email) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidEmail))
			return
		}

		if input.Age < minAge || input.Age > maxAge {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidAge))
			return
		}

		passwordLen := utf8.RuneCountInString(input.Password)
		if passwordLen < 6 || passwordLen > 50 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		created, err := deps.Members.Insert(r.Context(), member.Member{
			Name:         input.Name,
			Email:        input.Email,
			Age:          input.Age,
			PasswordHash: string(hashedPassword),
		})

		if err != nil {
			if errors.Is(err, member.ErrEmailExists) {
				logx.Warn("signup conflict: email already registered", "email", input.Email)
				resp.RespondError(w, r, errs.NewError(errs.ErrEmailAlreadyExists))
				return
			}

			logx.Error(err, "failed to create member")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		token, customErr := issueToken(deps, created)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token":  token,
			"member": publicMember(created),
		})
	}
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies member credentials and issues a session token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identity := jwt.GetPayloadFromContext(r); identity != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input LoginInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		m, err := deps.Members.FindByEmail(r.Context(), input.Email)
		if err != nil {
			logx.Warn("login: member fetch failed", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "member_id", m.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		token, customErr := issueToken(deps, m)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token":  token,
			"member": publicMember(m),
		})
	}
}

func issueToken(deps *AppDeps, m member.Member) (string, *errs.CustomError) {
	payload := &jwt.Payload{
		ID:   m.ID,
		Name: m.Name,
	}

	token, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.IdentityExpiration)
	if err != nil {
		logx.Error(err, "failed to generate token", "member_id", m.ID)
		return "", errs.NewError(errs.ErrUnknown)
	}

	return token, nil
}
