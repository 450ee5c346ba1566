package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/InfinityZero3000/LexiLingo-sub001/adapters"
	"github.com/InfinityZero3000/LexiLingo-sub001/adapters/llm"
	mongodb "github.com/InfinityZero3000/LexiLingo-sub001/adapters/mongo"
	"github.com/InfinityZero3000/LexiLingo-sub001/adapters/stt"
	"github.com/InfinityZero3000/LexiLingo-sub001/adapters/tts"
	"github.com/InfinityZero3000/LexiLingo-sub001/domain/entities"
	"github.com/InfinityZero3000/LexiLingo-sub001/internal/api"
	"github.com/InfinityZero3000/LexiLingo-sub001/internal/config"
	"github.com/InfinityZero3000/LexiLingo-sub001/internal/stream"
	"github.com/InfinityZero3000/LexiLingo-sub001/internal/websocket"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load(logger)

	ctx := context.Background()
	deps := buildDeps(ctx, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize WebSocket hub; one orchestrator per connection
	hub := websocket.NewHub(deps, cfg.Stream, logger)
	go hub.Run()

	users := adapters.NewMemoryUserRepository()
	seedCredentials(users, logger)

	// Initialize API routes
	api.InitRoutes(e, hub, users, deps.Store, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildDeps wires the orchestrator's collaborators. Each backend falls back
// to its mock when the credentials it needs are absent, so the server runs
// end to end in development.
func buildDeps(ctx context.Context, logger *zap.Logger) stream.Deps {
	deps := stream.Deps{}

	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		recognizer, err := stt.NewGoogleRecognizer(ctx, logger)
		if err != nil {
			logger.Fatal("failed to initialize speech recognition", zap.Error(err))
		}
		deps.Recognizer = recognizer
	} else {
		logger.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using mock recognizer")
		deps.Recognizer = stt.NewMockRecognizer(logger)
	}

	if os.Getenv("ELEVEN_LABS_API_KEY") != "" {
		backend, err := tts.NewElevenLabsTTS(tts.NewElevenLabsConfigFromEnv(), logger)
		if err != nil {
			logger.Fatal("failed to initialize speech synthesis", zap.Error(err))
		}
		deps.Speech = backend
	} else {
		logger.Warn("ELEVEN_LABS_API_KEY not set, using mock speech backend")
		deps.Speech = tts.NewMockSpeechBackend(logger)
	}

	if os.Getenv("GEMINI_API_KEY") != "" {
		reasoner, err := llm.NewGeminiReasoner(ctx, logger)
		if err != nil {
			logger.Fatal("failed to initialize reasoner", zap.Error(err))
		}
		deps.Reasoner = reasoner
		deps.Analyzer = llm.NewGeminiAnalyzer(reasoner, logger)
	} else {
		logger.Warn("GEMINI_API_KEY not set, using mock reasoner and analyzer")
		deps.Reasoner = llm.NewMockReasoner()
		deps.Analyzer = llm.NewMockAnalyzer()
	}

	if os.Getenv("MONGODB_URI") != "" {
		client, err := mongodb.NewClient(logger)
		if err != nil {
			logger.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		store, err := mongodb.NewSessionRepository(ctx, client.Database)
		if err != nil {
			logger.Fatal("failed to initialize session storage", zap.Error(err))
		}
		deps.Store = store
	} else {
		logger.Warn("MONGODB_URI not set, conversation history will not be persisted")
	}

	return deps
}

// seedCredentials registers development credentials from the environment so
// the token endpoint works without an account service.
func seedCredentials(users *adapters.MemoryUserRepository, logger *zap.Logger) {
	email := os.Getenv("SEED_USER_EMAIL")
	apiKey := os.Getenv("SEED_USER_API_KEY")
	if email == "" || apiKey == "" {
		return
	}

	user := &entities.User{
		Email:        email,
		Name:         "Development User",
		NativeLang:   "en",
		LearningLang: "en",
	}
	if err := users.Create(context.Background(), user); err != nil {
		logger.Warn("failed to seed development user", zap.Error(err))
		return
	}
	if err := users.RegisterAPIKey(email, apiKey); err != nil {
		logger.Warn("failed to seed development credentials", zap.Error(err))
		return
	}
	logger.Info("Seeded development user", zap.String("email", email))
}
