package webhook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/store"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	Route = "/api/webhooks/:projectId/watson"
)

// Handler serves dialog webhook callbacks for stored projects.
type Handler struct {
	projects  store.ProjectStore
	fulfiller Fulfiller
	logger    assistant.Logger
}

type Option func(*Handler)

func WithLogger(l assistant.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler returns a handler resolving projects through projects. A nil
// fulfiller echoes the decoded request.
func NewHandler(projects store.ProjectStore, fulfiller Fulfiller, opts ...Option) *Handler {
	h := &Handler{projects: projects, fulfiller: fulfiller}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.logger = assistant.NormalizeLogger(h.logger)
	if h.fulfiller == nil {
		h.fulfiller = EchoFulfiller
	}
	return h
}

// NewRouter builds a gin engine with request ids, panic recovery and the
// webhook route.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(h.logger))
	h.Register(r)
	return r
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST(Route, h.Callback)
}

// POST /api/webhooks/:projectId/watson
func (h *Handler) Callback(c *gin.Context) {
	projectID := c.Param("projectId")
	logger := assistant.WithLoggerFields(h.logger.WithContext(c.Request.Context()), map[string]any{
		"project_id": projectID,
		"request_id": c.GetString(requestIDKey),
	})

	project, err := h.projects.FindByID(c.Request.Context(), projectID)
	if err != nil {
		h.fail(c, logger, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		h.fail(c, logger, assistant.CloneError(ErrInvalidPayload, "read body", err, nil))
		return
	}
	logger.Debug("webhook payload: %s", string(body))

	req, err := DecodeJSON(body)
	if err != nil {
		h.fail(c, logger, err)
		return
	}

	out, err := h.fulfiller.Fulfill(c.Request.Context(), project, req)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}

func (h *Handler) fail(c *gin.Context, logger assistant.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("webhook failed: %v", err)
	} else {
		logger.Warn("webhook rejected: %v", err)
	}

	body := gin.H{"error": err.Error()}
	var ge *errors.Error
	if errors.As(err, &ge) {
		body["error"] = ge.Message
		body["code"] = ge.TextCode
	}
	c.AbortWithStatusJSON(status, body)
}

func statusFor(err error) int {
	var ge *errors.Error
	if !errors.As(err, &ge) {
		return http.StatusInternalServerError
	}
	switch ge.Category {
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryBadInput, errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RequestID reuses the caller's X-Request-ID or assigns a new uuid, and
// echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Recovery logs panics with their stack and answers 500.
func Recovery(logger assistant.Logger) gin.HandlerFunc {
	recoverPanic := assistant.MakePanicHandler(assistant.LoggerPanicLogger(logger))
	return func(c *gin.Context) {
		completed := false
		defer func() {
			if !completed {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		defer recoverPanic(c.FullPath(), map[string]any{
			"method":     c.Request.Method,
			"request_id": c.GetString(requestIDKey),
		})
		c.Next()
		completed = true
	}
}
