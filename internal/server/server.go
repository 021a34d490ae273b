package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"imagegallery/internal/config"
	"imagegallery/internal/domain/auth"
	"imagegallery/internal/domain/image"
	"imagegallery/internal/middleware"
	"imagegallery/internal/pkg/jwt"
	"imagegallery/internal/storage"
)

// Deps are the long-lived resources the HTTP layer is built on.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Storage storage.Storage
	Logger  *slog.Logger
}

// Migrate creates or updates the tables the gallery needs.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&auth.User{}, &image.Image{})
}

// Policy turns the upload settings into the image service's policy.
func Policy(cfg config.UploadConfig) image.UploadPolicy {
	return image.UploadPolicy{
		AllowedTypes: cfg.AllowedTypes,
		MaxSize:      cfg.MaxSize,
		RequireImage: cfg.RequireImage,
	}
}

// NewImageService wires the image service the same way the router does.
func NewImageService(d Deps) *image.Service {
	return image.NewService(image.NewRepository(d.DB), d.Storage, Policy(d.Config.Upload), d.Logger)
}

// New builds the router with every route mounted under /api/v1.
func New(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Config.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens := jwt.New(d.Config.JWTSecret, d.Config.JWTTTL)

	authHandler := auth.NewHandler(auth.NewService(auth.NewRepository(d.DB), tokens, d.Logger))
	imageHandler := image.NewHandler(NewImageService(d))

	r := gin.New()
	r.MaxMultipartMemory = d.Config.Upload.MaxSize + 1<<20
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorLogger(d.Logger))
	r.Use(middleware.CORS(d.Config.CORSOrigins))

	r.GET("/healthz", healthz(d.DB))

	if local, ok := d.Storage.(*storage.Local); ok && strings.HasPrefix(local.PublicURL(), "/") {
		r.Static(strings.TrimSuffix(local.PublicURL(), "/"), local.Root())
	}

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)
		imageHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(tokens))
		{
			authHandler.RegisterProtectedRoutes(protected)
			imageHandler.RegisterProtectedRoutes(protected)
		}
	}

	return r
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
