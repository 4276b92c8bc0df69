package routes

import (
	"net/http"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/config"
	"github.com/ELEVATE-Project/project-service-sub000/controllers"
	"github.com/ELEVATE-Project/project-service-sub000/events"
	"github.com/ELEVATE-Project/project-service-sub000/metrics"
	"github.com/ELEVATE-Project/project-service-sub000/middleware"
	"github.com/ELEVATE-Project/project-service-sub000/services"
	"github.com/ELEVATE-Project/project-service-sub000/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Dependencies are the infrastructure pieces chosen at startup.
type Dependencies struct {
	Categories store.CategoryStore
	Templates  store.TemplateStore
	Publisher  events.Publisher
	// Storage may be nil when evidence uploads are disabled.
	Storage  services.ObjectStorage
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// ServiceContainer holds all services and dependencies
type ServiceContainer struct {
	JWTSecret      string
	JWTIssuer      string
	AllowedOrigins []string

	CategoryService *services.CategoryService
	QueryService    *services.CategoryQueryService
	EvidenceService *services.EvidenceService
	Notifier        *services.SyncNotifier

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewServiceContainer creates a new service container with all dependencies initialized
func NewServiceContainer(cfg *config.Config, deps Dependencies) *ServiceContainer {
	m := metrics.New(deps.Registry)

	notifier := services.NewSyncNotifier(deps.Templates, deps.Publisher, deps.Logger.Named("sync"), m, cfg.SyncTimeout)

	categoryService := services.NewCategoryService(
		deps.Categories,
		deps.Templates,
		services.NewHierarchyCalculator(cfg.MaxHierarchyDepth),
		notifier,
		services.CategoryServiceConfig{
			MaxNameLength:       cfg.CategoryNameMaxLength,
			AllowDuplicateNames: cfg.AllowDuplicateNames,
		},
		deps.Logger.Named("categories"),
		m,
	)

	var evidenceService *services.EvidenceService
	if deps.Storage != nil {
		evidenceService = services.NewEvidenceService(deps.Storage, cfg.MaxEvidenceSize, deps.Logger.Named("evidence"))
	}

	return &ServiceContainer{
		JWTSecret:       cfg.JWTSecret,
		JWTIssuer:       cfg.JWTIssuer,
		AllowedOrigins:  cfg.AllowedOrigins,
		CategoryService: categoryService,
		QueryService:    services.NewCategoryQueryService(deps.Categories, cfg.ListDefaultLimit, cfg.ListMaxLimit, m),
		EvidenceService: evidenceService,
		Notifier:        notifier,
		Metrics:         m,
		Gatherer:        deps.Registry,
		Logger:          deps.Logger,
	}
}

// NewRouter builds the gin engine with global middleware, probes and the API.
func NewRouter(container *ServiceContainer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(container.Logger))
	router.Use(middleware.CORS(container.AllowedOrigins))
	router.Use(container.Metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})
	router.GET("/metrics", metrics.Handler(container.Gatherer))

	api := router.Group("/api/v1")
	SetupRoutesWithContainer(api, container)
	return router
}

// SetupRoutesWithContainer configures all API routes using a service container
func SetupRoutesWithContainer(api *gin.RouterGroup, container *ServiceContainer) {
	categoryController := controllers.NewCategoryController(
		container.CategoryService,
		container.QueryService,
		container.EvidenceService,
	)
	RegisterCategoryRoutes(api, container.JWTSecret, container.JWTIssuer, categoryController)
}
