package ragrelay

import (
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ragrelay/internal/ragrelay/handler/middleware"
	v1 "github.com/kiosk404/ragrelay/internal/ragrelay/handler/v1"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service"
)

// routerDeps holds the dependencies needed for route registration.
type routerDeps struct {
	chatService service.ChatService
	authConfig  *middleware.AuthConfig
}

func initRouter(g *gin.Engine, deps *routerDeps) {
	installMiddleware(g, deps)
	installController(g, deps)
}

func installMiddleware(g *gin.Engine, deps *routerDeps) {
	g.Use(gin.Recovery())
	g.Use(middleware.CORS())

	if deps.authConfig != nil {
		g.Use(middleware.BearerAuth(deps.authConfig))
	}
}

func installController(g *gin.Engine, deps *routerDeps) {
	chatHandler := v1.NewChatHandler(deps.chatService)
	toolHandler := v1.NewToolHandler(deps.chatService)

	apiV1 := g.Group("/v1")
	{
		apiV1.POST("/chats", chatHandler.Create)
		apiV1.GET("/chats", chatHandler.List)
		apiV1.GET("/chats/:id", chatHandler.Get)
		apiV1.DELETE("/chats/:id", chatHandler.Delete)

		apiV1.GET("/tools", toolHandler.List)
	}
}
