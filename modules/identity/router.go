package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/storekeep/pkg/cookie"
	"github.com/dmitrymomot/storekeep/pkg/response"
)

// Router exposes the identity HTTP API:
//
//	POST /auth/otp      request a verification code
//	POST /auth/verify   exchange a code for a session cookie
//	POST /auth/signout  destroy the session
//	GET  /me            current user
//	PATCH /me           update avatar
//
// The otpLimiter middleware, when non-nil, guards /auth/otp.
func Router(svc *Service, cookies *cookie.Manager, otpLimiter func(http.Handler) http.Handler) chi.Router {
	h := &handler{svc: svc, cookies: cookies}

	r := chi.NewRouter()
	r.Route("/auth", func(auth chi.Router) {
		if otpLimiter != nil {
			auth.With(otpLimiter).Post("/otp", h.requestOTP)
		} else {
			auth.Post("/otp", h.requestOTP)
		}
		auth.Post("/verify", h.verifyOTP)
		auth.Post("/signout", h.signOut)
	})
	r.Group(func(priv chi.Router) {
		priv.Use(RequireAuth(svc, cookies))
		priv.Get("/me", h.currentUser)
		priv.Patch("/me", h.updateAvatar)
	})
	return r
}

type handler struct {
	svc     *Service
	cookies *cookie.Manager
}

type requestOTPPayload struct {
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

func (h *handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	var payload requestOTPPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	challengeID, err := h.svc.RequestOTP(r.Context(), payload.Email, payload.FullName)
	if err != nil {
		response.Error(w, mapIdentityError(err))
		return
	}

	response.JSON(w, http.StatusCreated, map[string]string{
		"challenge_id": challengeID.String(),
	})
}

type verifyOTPPayload struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

func (h *handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var payload verifyOTPPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	challengeID, err := uuid.Parse(payload.ChallengeID)
	if err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	session, user, err := h.svc.VerifyOTP(r.Context(), challengeID, payload.Code)
	if err != nil {
		response.Error(w, mapIdentityError(err))
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	h.cookies.SetSigned(w, SessionCookieName, session.Secret, cookie.WithMaxAge(maxAge))

	response.JSON(w, http.StatusOK, user)
}

func (h *handler) signOut(w http.ResponseWriter, r *http.Request) {
	secret, err := h.cookies.GetSigned(r, SessionCookieName)
	if err == nil {
		if err := h.svc.SignOut(r.Context(), secret); err != nil {
			response.Error(w, err)
			return
		}
	}
	h.cookies.Delete(w, SessionCookieName)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) currentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}
	response.JSON(w, http.StatusOK, user)
}

type updateAvatarPayload struct {
	AvatarURL string `json:"avatar_url"`
}

func (h *handler) updateAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	var payload updateAvatarPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	updated, err := h.svc.UpdateAvatar(r.Context(), user.ID, payload.AvatarURL)
	if err != nil {
		response.Error(w, mapIdentityError(err))
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

// mapIdentityError translates domain errors into HTTP errors; validation
// errors pass through for the 422 detail rendering.
func mapIdentityError(err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return response.ErrNotFound
	case errors.Is(err, ErrChallengeNotFound):
		return response.ErrNotFound
	case errors.Is(err, ErrChallengeExpired):
		return response.ErrGone
	case errors.Is(err, ErrChallengeConsumed), errors.Is(err, ErrAttemptsExhausted):
		return response.ErrConflict
	case errors.Is(err, ErrInvalidCode):
		return response.ErrUnauthorized
	case errors.Is(err, ErrAvatarHostNotAllowed):
		return response.ErrUnprocessableEntity
	case errors.Is(err, ErrOTPDeliveryFailed):
		return response.ErrServiceUnavailable
	default:
		return err
	}
}
