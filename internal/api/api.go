// Package api exposes the session and catalogue operations over HTTP.
// Handlers are thin: they decode the request, call one service
// operation, and translate sentinel errors into status codes.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
	"github.com/faircombine/faircombine/internal/service"
	"github.com/faircombine/faircombine/internal/store"
)

// Server holds the HTTP handler state.
type Server struct {
	svc   *service.Service
	store store.Store
	log   zerolog.Logger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(svc *service.Service, st store.Store, log zerolog.Logger) *gin.Engine {
	s := &Server{
		svc:   svc,
		store: st,
		log:   log.With().Str("component", "api").Logger(),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.health)

	r.POST("/session", s.createSession)
	r.POST("/session/resume", s.resumeSession)
	r.GET("/session/:id", s.getSession)
	r.DELETE("/session/:id", s.deleteSession)
	r.GET("/session/:id/tasks/:tid", s.getTask)
	r.PATCH("/session/:id/tasks/:tid", s.updateTask)

	r.GET("/indicators", s.listIndicators)
	r.GET("/indicators/:name", s.getIndicator)

	return r
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("request handled")
	}
}

func (s *Server) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// createSessionRequest is the POST /session body.
type createSessionRequest struct {
	AssessmentType   string            `json:"assessment_type" binding:"required"`
	Path             string            `json:"path"`
	HasArchive       bool              `json:"has_archive"`
	SourceRepository string            `json:"source_repository"`
	Answers          map[string]string `json:"answers"`
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := s.svc.CreateSession(c.Request.Context(), domain.Subject{
		AssessmentType:   constants.SubjectType(req.AssessmentType),
		Path:             req.Path,
		HasArchive:       req.HasArchive,
		SourceRepository: req.SourceRepository,
		Answers:          req.Answers,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) resumeSession(c *gin.Context) {
	var session domain.Session
	if err := c.ShouldBindJSON(&session); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restored, err := s.svc.ResumeSession(c.Request.Context(), &session)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, restored)
}

func (s *Server) getSession(c *gin.Context) {
	session, err := s.svc.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.svc.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getTask(c *gin.Context) {
	task, err := s.svc.Task(c.Request.Context(), c.Param("id"), c.Param("tid"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// updateTaskRequest is the PATCH /session/:id/tasks/:tid body.
type updateTaskRequest struct {
	Status      string `json:"status" binding:"required"`
	Comment     string `json:"comment"`
	ForceUpdate string `json:"force_update"`
}

func (s *Server) updateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := s.svc.UpdateTask(c.Request.Context(), c.Param("id"), c.Param("tid"),
		service.UpdateTaskRequest{
			Status:      constants.TaskStatus(req.Status),
			Comment:     req.Comment,
			ForceUpdate: req.ForceUpdate,
		})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) listIndicators(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Indicators())
}

func (s *Server) getIndicator(c *gin.Context) {
	ind, err := s.svc.Indicator(c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ind)
}

// writeError maps sentinel errors onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fcerrors.ErrSessionNotFound),
		errors.Is(err, fcerrors.ErrTaskNotFound),
		errors.Is(err, fcerrors.ErrIndicatorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, fcerrors.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, fcerrors.ErrSessionExists):
		status = http.StatusConflict
	case errors.Is(err, fcerrors.ErrLockTimeout):
		status = http.StatusServiceUnavailable
	case errors.Is(err, fcerrors.ErrInvalidStatus),
		errors.Is(err, fcerrors.ErrInvalidSubject),
		errors.Is(err, fcerrors.ErrEmptyValue):
		status = http.StatusBadRequest
	case errors.Is(err, fcerrors.ErrConstruction),
		errors.Is(err, fcerrors.ErrDependencyMismatch),
		errors.Is(err, fcerrors.ErrDuplicateDependency):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
