package http

import (
	"github.com/gin-gonic/gin"

	"chatmypdf/internal/bootstrap"
	"chatmypdf/internal/transport/http/handler"
	"chatmypdf/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(app.Auth)
	creditHandler := handler.NewCreditHandler(app.Payments, app.Config.Identity.AllowCreditOverride)
	documentHandler := handler.NewDocumentHandler()
	chatHandler := handler.NewChatHandler()

	router.GET("/healthz", healthHandler.Check)

	authJWT := middleware.AuthJWT(app.Config.Auth.JWTSecret, app.Config.Auth.JWTIssuer)
	workspace := middleware.Workspace(app.Workspaces, app.Logger)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authJWT, workspace, authHandler.Logout)
	authGroup.GET("/me", authJWT, workspace, authHandler.Me)

	v1.POST("/payments/notification", creditHandler.Notification)

	creditGroup := v1.Group("/credits")
	creditGroup.Use(authJWT, workspace)
	creditGroup.GET("", creditHandler.Balance)
	creditGroup.PUT("", creditHandler.SetCredits)
	creditGroup.GET("/packs", creditHandler.Packs)
	creditGroup.POST("/checkout", creditHandler.Checkout)

	documentGroup := v1.Group("/documents")
	documentGroup.Use(authJWT, workspace)
	documentGroup.POST("", documentHandler.Upload)
	documentGroup.GET("", documentHandler.List)
	documentGroup.PUT("/selection", documentHandler.Select)
	documentGroup.DELETE("/selection", documentHandler.ClearSelection)
	documentGroup.DELETE("/:id", documentHandler.Delete)
	documentGroup.GET("/:id/content", documentHandler.Content)
	documentGroup.GET("/:id/text", documentHandler.Text)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(authJWT, workspace)
	chatGroup.POST("/sessions", chatHandler.StartSession)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.GET("/sessions/current", chatHandler.CurrentSession)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.POST("/messages/stream", chatHandler.StreamMessage)

	return router
}
