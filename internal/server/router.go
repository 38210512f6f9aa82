package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/commons/backend/internal/community"
	"github.com/MarcoPoloResearchLab/commons/backend/internal/mpesa"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const livenessMessage = "Commons API is running"

var (
	errMissingUserService    = errors.New("user service dependency required")
	errMissingEstateService  = errors.New("estate service dependency required")
	errMissingEventService   = errors.New("event service dependency required")
	errMissingPostService    = errors.New("post service dependency required")
	errMissingCommentService = errors.New("comment service dependency required")
	errMissingProjectService = errors.New("project service dependency required")
)

// PaymentInitiator submits STK push payment prompts.
type PaymentInitiator interface {
	STKPush(ctx context.Context, req mpesa.STKPushRequest) (json.RawMessage, error)
}

type Dependencies struct {
	Users    *community.UserService
	Estates  *community.EstateService
	Events   *community.EventService
	Posts    *community.PostService
	Comments *community.CommentService
	Projects *community.ProjectService
	// Payments is optional; without it the payment route answers 503.
	Payments PaymentInitiator
	// Metrics receives the HTTP collectors; a private registry is created when nil.
	Metrics *prometheus.Registry
	Logger  *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Users == nil {
		return nil, errMissingUserService
	}
	if deps.Estates == nil {
		return nil, errMissingEstateService
	}
	if deps.Events == nil {
		return nil, errMissingEventService
	}
	if deps.Posts == nil {
		return nil, errMissingPostService
	}
	if deps.Comments == nil {
		return nil, errMissingCommentService
	}
	if deps.Projects == nil {
		return nil, errMissingProjectService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := deps.Metrics
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	metrics, err := newHTTPMetrics(registry)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(requestLogger(logger))
	router.Use(gin.CustomRecovery(recoverPanic(logger)))
	router.Use(metrics.middleware())
	router.Use(corsMiddleware())

	router.GET("/", handleLiveness)
	router.GET("/healthz", handleLiveness)
	router.GET("/metrics", gin.WrapH(metricsHandler(registry)))

	api := router.Group("/api")
	mountResource[community.UserInput, community.UserPatch, community.UserView](api, "user", "User", deps.Users, logger)
	mountResource[community.EstateInput, community.EstatePatch, community.EstateView](api, "estate", "Estate", deps.Estates, logger)
	mountResource[community.EventInput, community.EventPatch, community.EventView](api, "event", "Event", deps.Events, logger)
	mountResource[community.PostInput, community.PostPatch, community.PostView](api, "post", "Post", deps.Posts, logger)
	mountResource[community.CommentInput, community.CommentPatch, community.CommentView](api, "comment", "Comment", deps.Comments, logger)
	mountResource[community.ProjectInput, community.ProjectPatch, community.ProjectView](api, "project", "Project", deps.Projects, logger)

	payments := &paymentHandler{initiator: deps.Payments, logger: logger}
	api.POST("/payment/stkpush", payments.handleSTKPush)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:  []string{"Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	})
}

func handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": livenessMessage})
}
