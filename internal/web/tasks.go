package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

var errBadRequest = errors.New("bad request")

type taskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority"`
}

func (r taskRequest) draft() model.Draft {
	return model.Draft{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		DueDate:     r.DueDate,
		Priority:    model.Priority(r.Priority),
	}
}

type listResponse struct {
	Items  []model.Task `json:"items"`
	Stats  model.Stats  `json:"stats"`
	Filter model.Filter `json:"filter"`
}

func (s *Server) listTasks(c *gin.Context) {
	filter, err := filterFromRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{
		Items:  s.store.List(filter),
		Stats:  s.store.Stats(),
		Filter: filter,
	})
}

func (s *Server) createTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	task, err := s.store.Add(c.Request.Context(), req.draft())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) getTask(c *gin.Context) {
	task, ok := s.store.Get(c.Param("id"))
	if !ok {
		writeError(c, model.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, task)
}

// updateTask replaces every editable field; id and creation time are kept.
func (s *Server) updateTask(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.store.Get(id); !ok {
		writeError(c, model.ErrNotFound)
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	draft := req.draft()
	err := s.store.Edit(c.Request.Context(), model.Task{
		ID:          id,
		Title:       draft.Title,
		Description: draft.Description,
		Completed:   draft.Completed,
		DueDate:     draft.DueDate,
		Priority:    draft.Priority,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	s.respondWithTask(c, id)
}

func (s *Server) toggleTask(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.store.Get(id); !ok {
		writeError(c, model.ErrNotFound)
		return
	}
	if err := s.store.ToggleComplete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	s.respondWithTask(c, id)
}

func (s *Server) deleteTask(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondWithTask reports the task after a mutation. A realtime reload may
// have removed it in the meantime.
func (s *Server) respondWithTask(c *gin.Context, id string) {
	task, ok := s.store.Get(id)
	if !ok {
		writeError(c, model.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) streamReminders(c *gin.Context) {
	reminders, cancel := s.hub.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case reminder, ok := <-reminders:
			if !ok {
				return
			}
			c.SSEvent("reminder", reminder)
			c.Writer.Flush()
		}
	}
}
