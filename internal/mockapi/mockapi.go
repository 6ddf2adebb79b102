// Package mockapi is an in-memory events service speaking the same REST
// shape the client expects (GET/POST /events, DELETE /events/:id). It backs
// the `mock` command for local development and the web tests.
package mockapi

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appLog "eventlist/internal/log"
	"eventlist/internal/model"
)

// createRequest mirrors model.Draft with gin binding rules.
type createRequest struct {
	Name  string `json:"name" binding:"required"`
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// Service holds events in insertion order.
type Service struct {
	mu     sync.RWMutex
	events []model.Event
	newID  func() model.ID
}

type Option func(*Service)

// WithIDFunc overrides id assignment (uuid by default).
func WithIDFunc(fn func() model.ID) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New creates a Service seeded with events.
func New(seed []model.Event, opts ...Option) *Service {
	s := &Service{
		events: append([]model.Event(nil), seed...),
		newID:  func() model.ID { return model.ID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns a copy of the stored events.
func (s *Service) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Never nil: the list endpoint must answer [] rather than null.
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Handler builds the gin router.
func (s *Service) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors())

	r.GET("/events", s.list)
	r.POST("/events", s.create)
	r.DELETE("/events/:id", s.remove)
	r.OPTIONS("/events", noContent)
	r.OPTIONS("/events/:id", noContent)
	return r
}

func (s *Service) list(c *gin.Context) {
	c.JSON(http.StatusOK, s.Events())
}

func (s *Service) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev := model.Event{Name: req.Name, Start: req.Start, End: req.End}
	s.mu.Lock()
	ev.ID = s.newID()
	s.events = append(s.events, ev)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, ev)
}

func (s *Service) remove(c *gin.Context) {
	id := model.ID(c.Param("id"))

	s.mu.Lock()
	idx := -1
	for i, ev := range s.events {
		if ev.ID == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		s.events = append(s.events[:idx], s.events[idx+1:]...)
	}
	s.mu.Unlock()

	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		appLog.Debug("mockapi request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}
