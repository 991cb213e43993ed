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

type TaskHandler struct {
	decoder
	taskUsecase  usecase.TaskUsecase
	authenticate Authenticator
}

func NewTaskHandler(
	taskUsecase usecase.TaskUsecase,
	authenticate Authenticator,
	validator *validation.Validator,
) *TaskHandler {
	return &TaskHandler{
		decoder:      decoder{validator: validator},
		taskUsecase:  taskUsecase,
		authenticate: authenticate,
	}
}

func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tasks", h.ListTasks)
	r.Get("/tasks/{id}", h.GetTask)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/tasks", h.CreateTask)
		r.Post("/tasks/{id}/bids", h.AddBid)
		r.Delete("/tasks/{id}/bids/{bidID}", h.WithdrawBid)
		r.Post("/tasks/{id}/bids/{bidID}/accept", h.AcceptBid)
		r.Post("/tasks/{id}/start", h.StartWork)
		r.Post("/tasks/{id}/submit", h.SubmitWork)
		r.Post("/tasks/{id}/complete", h.CompleteTask)
		r.Post("/tasks/{id}/cancel", h.CancelTask)
		r.Post("/tasks/{id}/dispute", h.RaiseDispute)
	})
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req payload.CreateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.taskUsecase.CreateTask(r.Context(), currentUserID(r), usecase.CreateTaskParams{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		SkillsRequired: req.SkillsRequired,
		Budget: model.Budget{
			Amount:   req.Budget.Amount,
			Currency: req.Budget.Currency,
			Type:     req.Budget.Type,
		},
		Deadline: req.Deadline,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusCreated, "Task created", task)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskUsecase.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "", task)
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := usecase.ListTasksParams{
		Status:     query.Get("status"),
		Category:   query.Get("category"),
		Skill:      query.Get("skill"),
		PostedBy:   query.Get("postedBy"),
		AssignedTo: query.Get("assignedTo"),
	}

	var err error
	if params.Limit, err = queryInt64(r, "limit"); err != nil {
		writeError(w, r, err)
		return
	}
	if params.Offset, err = queryInt64(r, "offset"); err != nil {
		writeError(w, r, err)
		return
	}

	tasks, err := h.taskUsecase.ListTasks(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "", tasks)
}

func (h *TaskHandler) AddBid(w http.ResponseWriter, r *http.Request) {
	var req payload.BidRequest
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.taskUsecase.AddBid(r.Context(), chi.URLParam(r, "id"), currentUserID(r), usecase.BidParams{
		Amount:       req.Amount,
		Message:      req.Message,
		DeliveryDays: req.DeliveryDays,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusCreated, "Bid placed", task)
}

func (h *TaskHandler) WithdrawBid(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskUsecase.WithdrawBid(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "bidID"), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Bid withdrawn", task)
}

func (h *TaskHandler) AcceptBid(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskUsecase.AcceptBid(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "bidID"), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Bid accepted", task)
}

func (h *TaskHandler) StartWork(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskUsecase.StartWork(r.Context(), chi.URLParam(r, "id"), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Work started", task)
}

func (h *TaskHandler) SubmitWork(w http.ResponseWriter, r *http.Request) {
	var req payload.SubmitWorkRequest
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.taskUsecase.SubmitWork(r.Context(), chi.URLParam(r, "id"), currentUserID(r), usecase.SubmitWorkParams{
		Message:     req.Message,
		Attachments: req.Attachments,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Work submitted", task)
}

func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	var req payload.CompleteTaskRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	task, err := h.taskUsecase.CompleteTask(r.Context(), chi.URLParam(r, "id"), currentUserID(r), usecase.CompleteTaskParams{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Task completed", task)
}

func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskUsecase.CancelTask(r.Context(), chi.URLParam(r, "id"), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Task cancelled", task)
}

func (h *TaskHandler) RaiseDispute(w http.ResponseWriter, r *http.Request) {
	var req payload.DisputeRequest
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.taskUsecase.RaiseDispute(r.Context(), chi.URLParam(r, "id"), currentUserID(r), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Dispute raised", task)
}
