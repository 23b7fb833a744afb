package api

import (
	emailDelivery "github.com/Photon3009/cisoinbox/internal/email/delivery"
	"github.com/Photon3009/cisoinbox/internal/email/repository"
	"github.com/Photon3009/cisoinbox/internal/mailsync"
	"github.com/Photon3009/cisoinbox/internal/rag"
	"github.com/Photon3009/cisoinbox/pkg/sse"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, repo repository.EmailRepository, ragService *rag.Service, supervisor *mailsync.Supervisor, sseManager *sse.Manager) {
	emailHandler := emailDelivery.NewEmailHandler(repo, ragService, supervisor)

	api := r.Group("/api")
	{
		api.GET("/health", emailHandler.Health)

		// SSE endpoint
		api.GET("/events", sseManager.ServeHTTP)

		emails := api.Group("/emails")
		{
			emails.GET("", emailHandler.SearchEmails)
			emails.GET("/:id", emailHandler.GetEmailByID)
		}

		api.GET("/categories", emailHandler.Categories)
		api.POST("/suggest-reply", emailHandler.SuggestReply)
		api.POST("/examples", emailHandler.AddExample)
		api.GET("/sync/status", emailHandler.SyncStatus)
	}
}
