package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
	"github.com/KarpovAlexandrGo/task-api/internal/schema"
	"github.com/KarpovAlexandrGo/task-api/internal/usecase"
	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// TaskRequest documents the accepted task payload. Requests are decoded
// field by field so that partial updates can tell absent from empty.
type TaskRequest struct {
	Name     string `json:"name" example:"Buy milk" minLength:"2" maxLength:"50"`
	Priority string `json:"priority" example:"Medium" enums:"Low,Medium,High"`
	Status   string `json:"status" example:"Pending" enums:"Pending,In Progress,Completed"`
	DueOn    string `json:"due_on" example:"2026-12-31" format:"date"`
}

// TaskHandler serves the task endpoints.
type TaskHandler struct {
	taskUseCase usecase.TaskUseCase
}

func NewTaskHandler(taskUseCase usecase.TaskUseCase) *TaskHandler {
	return &TaskHandler{
		taskUseCase: taskUseCase,
	}
}

// RegisterRoutes mounts the task endpoints under /api/tasks.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/tasks", func(r chi.Router) {
		r.With(Action("get_tasks")).Get("/", h.ListTasks)
		r.With(Action("create_task")).Post("/", h.CreateTask)
		r.With(Action("get_task_by_id")).Get("/{id}", h.GetTask)
		r.With(Action("update_task")).Put("/{id}", h.UpdateTask)
		r.With(Action("delete_task")).Delete("/{id}", h.DeleteTask)
	})
}

// ListTasks returns the tasks matching the query filters.
// @Summary      List tasks
// @Description  Filters by name substring, priority, status and due date. An empty result is reported as 404.
// @Tags         tasks
// @Produce      json
// @Param        search    query    string false "Case-insensitive substring of the name"
// @Param        priority  query    string false "Exact priority" Enums(Low, Medium, High)
// @Param        status    query    string false "Exact status" Enums(Pending, In Progress, Completed)
// @Param        due_on    query    string false "Exact due date (YYYY-MM-DD); due_date is accepted too"
// @Param        sort      query    string false "Sort field" Enums(id, name, priority, status, due_on, due_date, created_on)
// @Success      200  {array}   entity.Task
// @Failure      400  {object}  ErrorResponse "Invalid date format or sort field"
// @Failure      404  {object}  ErrorResponse "No task matches"
// @Failure      500  {object}  ErrorResponse
// @Router       /api/tasks [get]
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := schema.ParseFilter(r.URL.Query())
	if err != nil {
		var qerr *schema.QueryError
		if errors.As(err, &qerr) {
			logger.FromContext(r.Context()).WithFields(logrus.Fields{
				"param":  qerr.Param,
				"reason": qerr.Reason,
			}).Error(queryEvent(qerr))
		}
		respondWithUseCaseError(w, err)
		return
	}

	tasks, err := h.taskUseCase.List(r.Context(), filter)
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tasks)
}

// CreateTask stores a new task.
// @Summary      Create a task
// @Description  priority defaults to Medium and status to Pending. The name must be unique.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        task body      TaskRequest true "Task"
// @Success      201  {object}  entity.Task
// @Failure      400  {object}  ErrorResponse "Malformed body or invalid fields"
// @Failure      406  {object}  ErrorResponse "Task already exists"
// @Failure      500  {object}  ErrorResponse "Database error"
// @Router       /api/tasks [post]
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskUseCase.Create(r.Context(), r.Body)
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, task)
}

// GetTask returns one task.
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Param        id   path      int true "Task ID"
// @Success      200  {object}  entity.Task
// @Failure      404  {object}  ErrorResponse
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	task, err := h.taskUseCase.Get(r.Context(), id)
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

// UpdateTask changes the fields present in the body and keeps the rest.
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id   path      int true "Task ID"
// @Param        task body      TaskRequest true "Fields to change"
// @Success      200  {object}  entity.Task
// @Failure      400  {object}  ErrorResponse "Malformed body or invalid fields"
// @Failure      404  {object}  ErrorResponse
// @Failure      406  {object}  ErrorResponse "Task already exists"
// @Failure      500  {object}  ErrorResponse "Database error"
// @Router       /api/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	task, err := h.taskUseCase.Update(r.Context(), id, r.Body)
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

// DeleteTask removes a task.
// @Summary      Delete a task
// @Tags         tasks
// @Produce      json
// @Param        id   path      int true "Task ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse "Database error"
// @Router       /api/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.taskUseCase.Delete(r.Context(), id); err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: msgTaskDeleted})
}

// parseID reads the {id} segment. Anything that is not an integer cannot
// name a task and is reported as not found.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.FromContext(r.Context()).WithField("task_id", raw).Error("task_not_found")
		respondWithUseCaseError(w, entity.ErrTaskNotFound)
		return 0, false
	}
	return id, true
}

func queryEvent(qerr *schema.QueryError) string {
	if qerr.Param == "sort" {
		return "invalid_sort_field"
	}
	return "invalid_date_entered"
}
