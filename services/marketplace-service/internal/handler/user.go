package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/payload"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/usecase"
	"github.com/skilllance/skilllance-api/shared/response"
	"github.com/skilllance/skilllance-api/shared/validation"
)

type UserHandler struct {
	decoder
	userUsecase  usecase.UserUsecase
	authenticate Authenticator
}

func NewUserHandler(
	userUsecase usecase.UserUsecase,
	authenticate Authenticator,
	validator *validation.Validator,
) *UserHandler {
	return &UserHandler{
		decoder:      decoder{validator: validator},
		userUsecase:  userUsecase,
		authenticate: authenticate,
	}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/leaderboard", h.Leaderboard)
	r.Get("/users/{id}", h.GetUser)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/users/me", h.GetMe)
		r.Patch("/users/me", h.UpdateMe)
	})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userUsecase.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "", payload.NewPublicProfile(user))
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.userUsecase.GetProfile(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "", user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req payload.UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.userUsecase.UpdateProfile(r.Context(), currentUserID(r), usecase.UpdateProfileParams{
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		Skills:    req.Skills,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Profile updated", user)
}

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt64(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}

	users, err := h.userUsecase.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "", payload.NewPublicProfiles(users))
}
