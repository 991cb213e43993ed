package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTaskBody() map[string]any {
	return map[string]any{
		"title":          "Fix my React form",
		"description":    "Validation breaks on submit",
		"category":       "web",
		"skillsRequired": []string{"react"},
		"budget":         map[string]any{"amount": 800},
		"deadline":       time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	}
}

func TestTaskRoutes(t *testing.T) {
	s := newTestServer(t)
	posterToken, _ := s.signIn(t, "poster@vce.ac.in")
	bidderToken, bidderID := s.signIn(t, "bidder@iitb.ac.in")

	rec, _ := s.do(t, http.MethodPost, "/api/v1/tasks", "", createTaskBody())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/api/v1/tasks", posterToken, createTaskBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	taskID := body["data"].(map[string]any)["id"].(string)

	rec, body = s.do(t, http.MethodGet, "/api/v1/tasks?status=Open", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)

	rec, body = s.do(t, http.MethodPost, "/api/v1/tasks/"+taskID+"/bids", bidderToken, map[string]any{
		"amount":       700,
		"message":      "Can start today",
		"deliveryTime": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bids := body["data"].(map[string]any)["bids"].([]any)
	bidID := bids[0].(map[string]any)["id"].(string)

	accept := fmt.Sprintf("/api/v1/tasks/%s/bids/%s/accept", taskID, bidID)

	rec, body = s.do(t, http.MethodPost, accept, bidderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", body["code"])

	rec, body = s.do(t, http.MethodPost, accept, posterToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	task := body["data"].(map[string]any)
	assert.Equal(t, "Assigned", task["status"])
	assert.Equal(t, bidderID, task["assignedTo"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/tasks/"+taskID+"/submit", bidderToken, map[string]any{"message": "done"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE", body["code"])

	for _, step := range []struct {
		path  string
		token string
		body  any
		want  string
	}{
		{"/start", bidderToken, nil, "In Progress"},
		{"/submit", bidderToken, map[string]any{"message": "done"}, "Under Review"},
		{"/complete", posterToken, map[string]any{"rating": 5}, "Completed"},
	} {
		rec, body = s.do(t, http.MethodPost, "/api/v1/tasks/"+taskID+step.path, step.token, step.body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, step.want, body["data"].(map[string]any)["status"])
	}

	rec, body = s.do(t, http.MethodPost, "/api/v1/reviews", posterToken, map[string]any{
		"taskId": taskID,
		"rating": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body = s.do(t, http.MethodGet, "/api/v1/users/"+bidderID+"/rating", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["count"])
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signIn(t, "val@vce.ac.in")

	req := createTaskBody()
	req["budget"] = map[string]any{"amount": 0}
	delete(req, "title")

	rec, body := s.do(t, http.MethodPost, "/api/v1/tasks", token, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields := body["details"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "amount")
}

func TestTaskNotFound(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/v1/tasks/000000000000000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestListTasksRejectsBadPaging(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/v1/tasks?limit=many", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}
