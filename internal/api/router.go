package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all routes of the service under /api/v1.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	documents := v1.Group("/documents")
	{
		documents.POST("/upload", api.UploadDocumentHandler)
		documents.GET("", api.ListDocumentsHandler)
		documents.GET("/:id", api.GetDocumentHandler)
		documents.DELETE("/:id", api.DeleteDocumentHandler)
		documents.POST("/:id/reingest", api.ReingestDocumentHandler)
		documents.POST("/:id/cancel", api.CancelDocumentHandler)
	}

	chats := v1.Group("/chats")
	{
		chats.POST("", api.CreateChatHandler)
		chats.GET("", api.ListChatsHandler)
		chats.GET("/:id/messages", api.ListMessagesHandler)
		chats.POST("/:id/ask", api.AskHandler)
	}

	v1.GET("/stats", api.StatsHandler)
}
