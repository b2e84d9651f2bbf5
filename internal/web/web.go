// Package web serves the task API, a read-only HTML overview and a
// server-sent stream of reminders.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Joseda-hg/lazytodo/internal/logging"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/notify"
	"github.com/Joseda-hg/lazytodo/internal/store"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.tmpl"))

type Server struct {
	store  *store.Store
	hub    *notify.Hub
	logger *log.Logger
}

func NewServer(store *store.Store, hub *notify.Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{store: store, hub: hub, logger: logger}
}

func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}))
	r.SetHTMLTemplate(indexTemplate)

	r.GET("/", s.index)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/tasks", s.listTasks)
	api.POST("/tasks", s.createTask)
	api.GET("/tasks/:id", s.getTask)
	api.PUT("/tasks/:id", s.updateTask)
	api.POST("/tasks/:id/toggle", s.toggleTask)
	api.DELETE("/tasks/:id", s.deleteTask)
	api.GET("/reminders", s.streamReminders)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) index(c *gin.Context) {
	filter, err := filterFromRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"Tasks":      s.store.List(filter),
		"Stats":      s.store.Stats(),
		"Filter":     filter,
		"Statuses":   []model.Status{model.StatusAll, model.StatusActive, model.StatusCompleted},
		"Priorities": model.Priorities,
	})
}

// filterFromRequest reports unparseable query values as errBadRequest.
func filterFromRequest(c *gin.Context) (model.Filter, error) {
	status, err := model.ParseStatus(c.Query("status"))
	if err != nil {
		return model.Filter{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	priority, err := model.ParsePriorityFilter(c.Query("priority"))
	if err != nil {
		return model.Filter{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return model.Filter{Status: status, Priority: priority, Query: c.Query("q")}, nil
}

// writeError maps the error taxonomy onto status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var writeErr *model.WriteError
	switch {
	case model.IsValidation(err), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &writeErr):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
