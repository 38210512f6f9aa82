package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/MarcoPoloResearchLab/commons/backend/internal/community"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// resourceService is the CRUD surface every community entity service exposes.
type resourceService[Input, Patch, View any] interface {
	List(ctx context.Context) ([]View, error)
	Get(ctx context.Context, id uint) (View, error)
	Create(ctx context.Context, input Input) (View, error)
	Update(ctx context.Context, id uint, patch Patch) (View, error)
	Delete(ctx context.Context, id uint) error
}

type resourceHandler[Input, Patch, View any] struct {
	label   string
	service resourceService[Input, Patch, View]
	logger  *zap.Logger
}

// mountResource registers the five CRUD routes for one entity under group/path.
func mountResource[Input, Patch, View any](group *gin.RouterGroup, path, label string, service resourceService[Input, Patch, View], logger *zap.Logger) {
	handler := &resourceHandler[Input, Patch, View]{label: label, service: service, logger: logger}
	group.GET("/"+path, handler.handleList)
	group.GET("/"+path+"/:id", handler.handleGet)
	group.POST("/"+path, handler.handleCreate)
	group.PATCH("/"+path+"/:id", handler.handleUpdate)
	group.DELETE("/"+path+"/:id", handler.handleDelete)
}

func (h *resourceHandler[Input, Patch, View]) handleList(c *gin.Context) {
	views, err := h.service.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *resourceHandler[Input, Patch, View]) handleGet(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	view, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *resourceHandler[Input, Patch, View]) handleCreate(c *gin.Context) {
	var input Input
	if !h.bindBody(c, &input) {
		return
	}
	view, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *resourceHandler[Input, Patch, View]) handleUpdate(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var patch Patch
	if !h.bindBody(c, &patch) {
		return
	}
	view, err := h.service.Update(c.Request.Context(), id, patch)
	if errors.Is(err, community.ErrEmptyPayload) && bodyHasFields(c) {
		// only unrecognised keys: nothing to write, answer with the current row
		view, err = h.service.Get(c.Request.Context(), id)
	}
	if err != nil {
		h.respondError(c, "update", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *resourceHandler[Input, Patch, View]) handleDelete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, "delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s %d deleted successfully", h.label, id)})
}

// pathID parses the :id segment. Anything other than an unsigned integer cannot name a row.
func (h *resourceHandler[Input, Patch, View]) pathID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": fmt.Sprintf("%s %s not found", h.label, raw),
		})
		return 0, false
	}
	return uint(id), true
}

// bindBody decodes the JSON body into dest. An absent body decodes as an empty object so the
// service reports which fields are missing. The raw body stays cached on the context.
func (h *resourceHandler[Input, Patch, View]) bindBody(c *gin.Context, dest any) bool {
	err := c.ShouldBindBodyWith(dest, binding.JSON)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_json", "message": err.Error()})
	return false
}

// bodyHasFields reports whether the cached request body is a JSON object with at least one key.
func bodyHasFields(c *gin.Context) bool {
	cached, ok := c.Get(gin.BodyBytesKey)
	if !ok {
		return false
	}
	body, ok := cached.([]byte)
	if !ok {
		return false
	}
	parsed := gjson.ParseBytes(body)
	return parsed.IsObject() && len(parsed.Map()) > 0
}

func (h *resourceHandler[Input, Patch, View]) respondError(c *gin.Context, operation string, err error) {
	status, label := classifyError(operation, err)
	body := gin.H{"error": label, "message": err.Error()}
	var serviceErr *community.ServiceError
	if errors.As(err, &serviceErr) {
		body["code"] = serviceErr.Code()
		body["message"] = serviceErr.Detail()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("resource", h.label),
			zap.String("operation", operation),
			zap.Error(err))
	}
	c.JSON(status, body)
}

func classifyError(operation string, err error) (int, string) {
	switch {
	case errors.Is(err, community.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, community.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, operation + "_failed"
	}
}
