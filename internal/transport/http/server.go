package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"examgen/internal/bootstrap"
	redisClient "examgen/internal/platform/redis"
	"examgen/internal/transport/http/handler"
	"examgen/internal/transport/http/middleware"
)

type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Documents *handler.DocumentHandler
	Questions *handler.QuestionHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)

	return Routes(Handlers{
		Health:    handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, healthChecks(app)),
		Auth:      handler.NewAuthHandler(app.AuthService),
		Documents: handler.NewDocumentHandler(app.DocumentService, app.Retriever, app.Config.Retrieval.TopK),
		Questions: handler.NewQuestionHandler(app.QuestionService),
	}, app.Config.Auth.JWTSecret)
}

// Routes mounts every endpoint. Question administration requires a reviewer token.
func Routes(h Handlers, jwtSecret string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.GET("/healthz", h.Health.Check)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.GET("/me", middleware.AuthJWT(jwtSecret), h.Auth.Me)

	docs := v1.Group("/documents")
	docs.POST("", h.Documents.Upload)
	docs.GET("", h.Documents.List)
	docs.POST("/:name/toggle", h.Documents.Toggle)
	docs.POST("/:name/ingest", h.Documents.Ingest)
	docs.GET("/:name/chunks", h.Documents.Chunks)

	questions := v1.Group("/questions")
	questions.POST("/generate", h.Questions.Generate)
	questions.POST("/evaluate", h.Questions.Evaluate)

	admin := v1.Group("/admin/questions")
	admin.Use(middleware.AuthJWT(jwtSecret))
	admin.GET("", h.Questions.List)
	admin.POST("/:id/rate", h.Questions.Rate)
	admin.POST("/:id/improve", h.Questions.Improve)
	admin.POST("/:id/evaluate", h.Questions.Reevaluate)

	return router
}

func healthChecks(app *bootstrap.App) map[string]handler.Checker {
	checks := map[string]handler.Checker{
		app.Config.Database.Driver: func(ctx context.Context) error {
			sqlDB, err := app.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx, app.Redis)
		}
	}
	if app.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}
