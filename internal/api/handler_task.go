package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taskflow/internal/domain"
)

type taskResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    domain.TaskPriority `json:"priority"`
	Deadline    time.Time           `json:"deadline"`
	Status      domain.TaskStatus   `json:"status"`
	AssignerID  string              `json:"assignerId"`
	AssigneeID  string              `json:"assigneeId"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func taskToAPI(t *domain.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Deadline:    t.Deadline,
		Status:      t.Status,
		AssignerID:  t.AssignerID,
		AssigneeID:  t.AssigneeID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type createTaskBody struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    domain.TaskPriority `json:"priority"`
	Deadline    string              `json:"deadline"`
	AssigneeID  string              `json:"assigneeId"`
}

type updateTaskBody struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Priority    *domain.TaskPriority `json:"priority"`
	Deadline    *string              `json:"deadline"`
	AssigneeID  *string              `json:"assigneeId"`
}

type updateStatusBody struct {
	Status domain.TaskStatus `json:"status"`
}

type taskStatusResponse struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Status domain.TaskStatus `json:"status"`
}

type messageResponse struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// CreateTask handles POST /task.
func (h *APIHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var body createTaskBody
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.tasks.Create(r.Context(), domain.CreateTaskRequest{
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		Deadline:    body.Deadline,
		AssigneeID:  body.AssigneeID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, taskToAPI(t))
}

// ListTasks handles GET /task?status=&relation=.
func (h *APIHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := h.tasks.List(r.Context(), domain.TaskFilter{
		Status:   domain.TaskStatus(q.Get("status")),
		Relation: q.Get("relation"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, taskToAPI(&tasks[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetTask handles GET /task/{id}.
func (h *APIHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskToAPI(t))
}

// UpdateTaskStatus handles PATCH /task/update-status/{id}.
func (h *APIHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var body updateStatusBody
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.tasks.UpdateStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskStatusResponse{ID: t.ID, Title: t.Title, Status: t.Status})
}

// UpdateTask handles PATCH /task/update/{id}.
func (h *APIHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var body updateTaskBody
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.tasks.Update(r.Context(), chi.URLParam(r, "id"), domain.UpdateTaskRequest{
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		Deadline:    body.Deadline,
		AssigneeID:  body.AssigneeID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskToAPI(t))
}

// DeleteTask handles DELETE /task/{id}.
func (h *APIHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.tasks.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{ID: id, Message: "task deleted"})
}
