package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"leadlens/internal/tracking"
)

const (
	msgEventAdded     = "Event added successfully"
	errInvalidRequest = "Invalid request"
)

type CreateEventParams struct {
	SessionID string         `json:"sessionId"`
	EventType string         `json:"type"`
	URL       string         `json:"url"`
	Referrer  string         `json:"referrer"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
	UserAgent string         `json:"userAgent"`
}

// CreateEventPublicAPIHandler receives tracking events from the browser SDK.
func CreateEventPublicAPIHandler(ctx *cartridge.Context) error {
	ctx.Logger.Debug("Received event request", slog.String("method", ctx.Method()), slog.String("path", ctx.Path()))

	params, err := parseEventRequest(ctx.Ctx)
	if err != nil {
		ctx.Logger.Debug("Failed to validate request", slog.Any("error", err))
		return handleError(ctx.Ctx, err)
	}

	input := &tracking.CollectEventInput{
		IPAddress: getClientIP(ctx.Ctx),
		UserAgent: userAgentFor(ctx, params),
		SessionID: params.SessionID,
		Type:      params.EventType,
		URL:       params.URL,
		Referrer:  params.Referrer,
		Timestamp: params.Timestamp,
		Data:      params.Data,
	}

	if err := tracking.CollectEvent(ctx.DBManager, ctx.Logger, input); err != nil {
		ctx.Logger.Error("Failed to collect event", slog.Any("error", err))
		if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "busy") {
			return ctx.Status(599).JSON(fiber.Map{})
		}

		if strings.Contains(err.Error(), "is required") {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
				"code":  "INVALID_EVENT",
			})
		}

		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to collect event",
			"code":  "COLLECTION_ERROR",
		})
	}

	return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgEventAdded,
		"status":  http.StatusAccepted,
	})
}

// CreateEventBeaconHandler handles events sent via navigator.sendBeacon during
// page unload. Beacons cannot read the response, so it always returns 202.
func CreateEventBeaconHandler(ctx *cartridge.Context) error {
	ctx.Logger.Debug("Received beacon event request",
		slog.String("method", ctx.Method()),
		slog.String("path", ctx.Path()))

	// sendBeacon payloads arrive as text/plain
	body := ctx.Body()
	var params CreateEventParams
	if err := json.Unmarshal(body, &params); err != nil {
		ctx.Logger.Debug("Failed to parse beacon request", slog.Any("error", err))
		return ctx.SendStatus(http.StatusAccepted)
	}

	if params.Data == nil {
		params.Data = make(map[string]any)
	}

	input := &tracking.CollectEventInput{
		IPAddress: getClientIP(ctx.Ctx),
		UserAgent: userAgentFor(ctx, &params),
		SessionID: params.SessionID,
		Type:      params.EventType,
		URL:       params.URL,
		Referrer:  params.Referrer,
		Timestamp: params.Timestamp,
		Data:      params.Data,
	}

	if err := tracking.CollectEvent(ctx.DBManager, ctx.Logger, input); err != nil {
		ctx.Logger.Error("Failed to collect beacon event",
			slog.Any("error", err),
			slog.String("eventType", params.EventType))
		return ctx.SendStatus(http.StatusAccepted)
	}

	return ctx.SendStatus(http.StatusAccepted)
}

func parseEventRequest(c *fiber.Ctx) (*CreateEventParams, error) {
	var params CreateEventParams
	if err := c.BodyParser(&params); err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, errInvalidRequest)
	}
	return &params, nil
}

// userAgentFor prefers the UA reported in the payload, then the forwarded
// header a reverse proxy may set, then the request header.
func userAgentFor(ctx *cartridge.Context, params *CreateEventParams) string {
	if params.UserAgent != "" {
		return params.UserAgent
	}
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		return forwardedUA
	}
	return ctx.Get("User-Agent")
}

func handleError(c *fiber.Ctx, err error) error {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
		})
	}

	return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": errInvalidRequest,
	})
}
