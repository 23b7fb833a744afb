package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/Photon3009/cisoinbox/cmd/api"
	"github.com/Photon3009/cisoinbox/internal/classify"
	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
	emailRepo "github.com/Photon3009/cisoinbox/internal/email/repository"
	emailUsecase "github.com/Photon3009/cisoinbox/internal/email/usecase"
	"github.com/Photon3009/cisoinbox/internal/mailsync"
	"github.com/Photon3009/cisoinbox/internal/notification"
	"github.com/Photon3009/cisoinbox/internal/rag"
	"github.com/Photon3009/cisoinbox/pkg/ai"
	"github.com/Photon3009/cisoinbox/pkg/chroma"
	"github.com/Photon3009/cisoinbox/pkg/config"
	"github.com/Photon3009/cisoinbox/pkg/database"
	"github.com/Photon3009/cisoinbox/pkg/imap"
	"github.com/Photon3009/cisoinbox/pkg/sse"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&emaildomain.EmailRecord{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	emailRepository := emailRepo.NewEmailRepository(db)

	// Initialize the completion provider and verify it works before serving
	completer, err := ai.NewCompleter(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiApiKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatal("Failed to initialize AI provider:", err)
	}
	if pinger, ok := completer.(ai.Pinger); ok {
		pingCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err = pinger.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Fatal("Failed to reach AI provider:", err)
		}
	}

	// Initialize vector index and RAG service
	vectorIndex, err := chroma.NewIndex(cfg)
	if err != nil {
		log.Fatal("Failed to initialize Chroma index:", err)
	}
	ragService := rag.NewService(completer, vectorIndex, cfg.VectorDataPath, cfg.MeetingLink, cfg.ProductDescription)
	initCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	err = ragService.Initialize(initCtx)
	cancel()
	if err != nil {
		log.Fatal("Failed to initialize RAG service:", err)
	}

	// Initialize SSE Manager
	sseManager := sse.NewManager()

	// Initialize notification sinks
	dispatcher := notification.NewDispatcher(
		notification.NewSlackSink(cfg.SlackBotToken, cfg.SlackChannelID),
		notification.NewWebhookSink(cfg.WebhookURL),
	)

	// Initialize processing pipeline
	actionable := emaildomain.Category(cfg.ActionableCategory)
	if !actionable.Valid() {
		log.Fatalf("Invalid ACTIONABLE_CATEGORY %q, must be one of %v", cfg.ActionableCategory, emaildomain.AllCategories())
	}
	engine := classify.NewEngine(completer)
	pipeline := emailUsecase.NewPipeline(emailRepository, engine, sseManager, dispatcher, actionable, cfg.SyncFolder)

	// Initialize mail sync supervisor
	dial := func(account emaildomain.MailAccount) (mailsync.Conn, error) {
		return imap.Dial(account)
	}
	supervisor := mailsync.NewSupervisor(dial, pipeline, accountsFromConfig(cfg), mailsync.Options{
		Folder:         cfg.SyncFolder,
		LookbackDays:   cfg.LookbackDays,
		BacklogLimit:   cfg.BacklogLimit,
		PollInterval:   cfg.PollInterval,
		ReconnectDelay: cfg.ReconnectDelay,
	})

	syncCtx, stopSync := context.WithCancel(context.Background())
	defer stopSync()
	if err := supervisor.Start(syncCtx); err != nil {
		log.Fatal("Failed to start mail sync:", err)
	}

	// Set up HTTP server
	router := gin.Default()
	api.SetupRoutes(router, emailRepository, ragService, supervisor, sseManager)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	supervisor.Stop()
	stopSync()
	dispatcher.Wait()
	sseManager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	log.Println("Stopped")
}

func accountsFromConfig(cfg *config.Config) []emaildomain.MailAccount {
	accounts := make([]emaildomain.MailAccount, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		accounts = append(accounts, emaildomain.MailAccount{
			ID:            a.ID,
			Email:         a.Email,
			Password:      a.Password,
			Host:          a.Host,
			Port:          a.Port,
			TLS:           a.TLS,
			TLSSkipVerify: a.TLSSkipVerify,
		})
	}
	return accounts
}
