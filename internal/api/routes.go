package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
	"github.com/InfinityZero3000/LexiLingo-sub001/internal/auth"
	"github.com/InfinityZero3000/LexiLingo-sub001/internal/websocket"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, users repositories.UserRepository, sessions repositories.SessionRepository, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:         "ok",
			Service:        "lexilingo-stream",
			ActiveSessions: hub.ActiveSessions(),
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Token issuance for clients about to open a stream
	v1.POST("/auth/token", func(c echo.Context) error {
		return issueToken(c, users, logger)
	})

	// Conversation history
	v1.GET("/sessions", func(c echo.Context) error {
		return listSessions(c, sessions, logger)
	})
	v1.GET("/sessions/:id", func(c echo.Context) error {
		return getSession(c, sessions, logger)
	})

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, logger)
	})
}

func issueToken(c echo.Context, users repositories.UserRepository, logger *zap.Logger) error {
	var req TokenRequest

	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind token request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.Email == "" || req.APIKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Email and api key are required",
		})
	}

	user, err := users.ValidateCredentials(req.Email, req.APIKey)
	if err != nil {
		logger.Warn("Token request failed",
			zap.String("email", req.Email),
			zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid credentials",
		})
	}

	token, err := auth.GenerateUserToken(user.ID)
	if err != nil {
		logger.Error("Failed to generate user token",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	// Expiration mirrors the token's own claims
	expiresAt := time.Now().Add(7 * 24 * time.Hour)

	logger.Info("User authenticated",
		zap.String("user_id", user.ID))

	return c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
	})
}

func listSessions(c echo.Context, sessions repositories.SessionRepository, logger *zap.Logger) error {
	claims, err := bearerClaims(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Valid JWT token is required",
		})
	}

	if sessions == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "history_unavailable",
			Message: "Conversation history storage is not configured",
		})
	}

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	records, err := sessions.ListByUser(c.Request().Context(), claims.UserID, limit)
	if err != nil {
		logger.Error("Failed to list sessions",
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "Failed to load conversation history",
		})
	}

	return c.JSON(http.StatusOK, records)
}

func getSession(c echo.Context, sessions repositories.SessionRepository, logger *zap.Logger) error {
	claims, err := bearerClaims(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Valid JWT token is required",
		})
	}

	if sessions == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "history_unavailable",
			Message: "Conversation history storage is not configured",
		})
	}

	record, err := sessions.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		logger.Error("Failed to load session",
			zap.String("session_id", c.Param("id")),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "Failed to load session",
		})
	}
	if record == nil || record.UserID != claims.UserID {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Session not found",
		})
	}

	return c.JSON(http.StatusOK, record)
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(hub *websocket.Hub, c echo.Context, logger *zap.Logger) error {
	claims, err := bearerClaims(c)
	if err != nil {
		logger.Warn("WebSocket connection rejected", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Valid JWT token is required in Authorization header",
		})
	}

	if claims.Role != "user" {
		logger.Warn("WebSocket connection rejected: invalid role",
			zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only user tokens are allowed for WebSocket connections",
		})
	}

	if claims.UserID == "" {
		logger.Error("WebSocket connection rejected: missing user ID in token")
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "User ID not found in token",
		})
	}

	logger.Info("WebSocket connection authenticated",
		zap.String("user_id", claims.UserID))

	return websocket.HandleWebSocket(hub, c, claims.UserID, logger)
}

// bearerClaims extracts and validates the Bearer token from the
// Authorization header only.
func bearerClaims(c echo.Context) (*auth.JWTClaims, error) {
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" && len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}
	if token == "" {
		return nil, echo.ErrUnauthorized
	}
	return auth.ValidateToken(token)
}
