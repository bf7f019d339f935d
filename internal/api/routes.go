package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/domain/repositories"
	"github.com/satriahrh/fluenty/server/internal/auth"
	"github.com/satriahrh/fluenty/server/internal/errx"
	"github.com/satriahrh/fluenty/server/internal/websocket"
	"github.com/satriahrh/fluenty/server/usecase"
)

const (
	clientIDKey = "client_id"

	defaultTranscriptLimit = 20
	maxTranscriptLimit     = 100
)

// Dependencies are the services exposed over HTTP
type Dependencies struct {
	Settings    *usecase.SettingsService
	Transcripts repositories.TranscriptRepository
	Issuer      *auth.TokenIssuer
	Hub         *websocket.Hub
	Logger      *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	logger := deps.Logger

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "fluenty-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.POST("/clients/register", func(c echo.Context) error {
		return registerClient(c, deps.Issuer, logger)
	})

	authed := v1.Group("", requireClient(deps.Issuer, logger))
	authed.GET("/home", func(c echo.Context) error {
		status, err := deps.Settings.Home(c.Request().Context(), clientID(c))
		if err != nil {
			return respondError(c, err, logger)
		}
		return c.JSON(http.StatusOK, status)
	})
	authed.GET("/settings", func(c echo.Context) error {
		return getSettings(c, deps.Settings, logger)
	})
	authed.PUT("/settings/api-key", func(c echo.Context) error {
		return saveAPIKey(c, deps.Settings, logger)
	})
	authed.PUT("/settings/model", func(c echo.Context) error {
		return saveModel(c, deps.Settings, logger)
	})
	authed.GET("/models", func(c echo.Context) error {
		return c.JSON(http.StatusOK, ModelsResponse{
			Models:  deps.Settings.AvailableModels(),
			Default: entities.DefaultModel,
		})
	})
	authed.GET("/conversations", func(c echo.Context) error {
		return getConversations(c, deps.Transcripts, logger)
	})

	// WebSocket endpoints with JWT validation
	ws := e.Group("/ws", requireClient(deps.Issuer, logger))
	ws.GET("/conversation", func(c echo.Context) error {
		return openSession(c, deps.Hub, entities.ModeConversation, logger)
	})
	ws.GET("/practice", func(c echo.Context) error {
		return openSession(c, deps.Hub, entities.ModePractice, logger)
	})
}

// requireClient validates the bearer token and stores the client ID
func requireClient(issuer *auth.TokenIssuer, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Extract JWT token from Authorization header only
			token, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.Warn("Request rejected: missing token", zap.String("path", c.Path()))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "JWT token is required in Authorization header",
				})
			}

			claims, err := issuer.ValidateToken(token)
			if err != nil {
				logger.Warn("Request rejected: invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired JWT token",
				})
			}

			c.Set(clientIDKey, claims.ClientID)
			return next(c)
		}
	}
}

func clientID(c echo.Context) string {
	id, _ := c.Get(clientIDKey).(string)
	return id
}

func registerClient(c echo.Context, issuer *auth.TokenIssuer, logger *zap.Logger) error {
	id := uuid.New().String()

	token, expiresAt, err := issuer.GenerateClientToken(id)
	if err != nil {
		logger.Error("Failed to generate client token", zap.String("client_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	logger.Info("Client registered", zap.String("client_id", id))
	return c.JSON(http.StatusCreated, RegisterResponse{
		ClientID:  id,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

func getSettings(c echo.Context, settings *usecase.SettingsService, logger *zap.Logger) error {
	current, err := settings.Load(c.Request().Context(), clientID(c))
	if err != nil {
		return respondError(c, err, logger)
	}
	return c.JSON(http.StatusOK, SettingsResponse{
		Configured: current.IsConfigured(),
		APIKey:     current.MaskedAPIKey(),
		Model:      current.Model,
	})
}

func saveAPIKey(c echo.Context, settings *usecase.SettingsService, logger *zap.Logger) error {
	var req SaveAPIKeyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if err := settings.SaveAPIKey(c.Request().Context(), clientID(c), req.APIKey); err != nil {
		return respondError(c, err, logger)
	}
	return getSettings(c, settings, logger)
}

func saveModel(c echo.Context, settings *usecase.SettingsService, logger *zap.Logger) error {
	var req SaveModelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if err := settings.SaveModel(c.Request().Context(), clientID(c), req.Model); err != nil {
		return respondError(c, err, logger)
	}
	return getSettings(c, settings, logger)
}

func getConversations(c echo.Context, transcripts repositories.TranscriptRepository, logger *zap.Logger) error {
	limit := defaultTranscriptLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "limit must be a positive integer",
			})
		}
		limit = min(parsed, maxTranscriptLimit)
	}

	list, err := transcripts.ListByClientID(c.Request().Context(), clientID(c), limit)
	if err != nil {
		return respondError(c, errx.WrapTranscript(err), logger)
	}
	if list == nil {
		list = []*entities.Transcript{}
	}
	return c.JSON(http.StatusOK, TranscriptsResponse{Transcripts: list})
}

func openSession(c echo.Context, hub *websocket.Hub, mode entities.Mode, logger *zap.Logger) error {
	id := clientID(c)
	logger.Info("WebSocket connection authenticated",
		zap.String("client_id", id),
		zap.String("mode", string(mode)))

	if err := hub.HandleWebSocket(c, id, mode); err != nil {
		return respondError(c, err, logger)
	}
	return nil
}

func respondError(c echo.Context, err error, logger *zap.Logger) error {
	status := errx.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(status, ErrorResponse{
		Error:   errorCode(status),
		Message: errx.SafeMessage(err),
	})
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusPreconditionFailed:
		return "not_configured"
	case http.StatusBadGateway:
		return "upstream_error"
	default:
		return "internal_error"
	}
}
