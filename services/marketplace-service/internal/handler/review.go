package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/payload"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/usecase"
	"github.com/skilllance/skilllance-api/shared/response"
	"github.com/skilllance/skilllance-api/shared/validation"
)

type ReviewHandler struct {
	decoder
	reviewUsecase usecase.ReviewUsecase
	authenticate  Authenticator
}

func NewReviewHandler(
	reviewUsecase usecase.ReviewUsecase,
	authenticate Authenticator,
	validator *validation.Validator,
) *ReviewHandler {
	return &ReviewHandler{
		decoder:       decoder{validator: validator},
		reviewUsecase: reviewUsecase,
		authenticate:  authenticate,
	}
}

func (h *ReviewHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{id}/reviews", h.ListUserReviews)
	r.Get("/users/{id}/rating", h.GetUserRating)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/reviews", h.CreateReview)
		r.Post("/reviews/{id}/helpful", h.MarkHelpful)
		r.Post("/reviews/{id}/flag", h.FlagReview)
	})
}

func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req payload.CreateReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	params := usecase.CreateReviewParams{
		TaskID:  req.TaskID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if c := req.Criteria; c != nil {
		params.Criteria = &model.Criteria{
			Quality:         c.Quality,
			Communication:   c.Communication,
			Timeliness:      c.Timeliness,
			Professionalism: c.Professionalism,
		}
	}

	review, err := h.reviewUsecase.CreateReview(r.Context(), currentUserID(r), params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusCreated, "Review submitted", review)
}

func (h *ReviewHandler) ListUserReviews(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt64(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt64(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}

	reviews, err := h.reviewUsecase.ListUserReviews(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "", reviews)
}

func (h *ReviewHandler) GetUserRating(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reviewUsecase.GetUserRatingSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "", summary)
}

func (h *ReviewHandler) MarkHelpful(w http.ResponseWriter, r *http.Request) {
	review, err := h.reviewUsecase.MarkHelpful(r.Context(), chi.URLParam(r, "id"), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Marked as helpful", review)
}

func (h *ReviewHandler) FlagReview(w http.ResponseWriter, r *http.Request) {
	var req payload.FlagReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	review, err := h.reviewUsecase.FlagReview(r.Context(), chi.URLParam(r, "id"), currentUserID(r), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Review flagged", review)
}
