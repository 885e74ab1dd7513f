package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"log/slog"

	"leadlens/internal/timeframe"
	"leadlens/internal/tracking"
	"leadlens/internal/visitors"
)

// shortTimelineLimit caps the timeline when the client asks for the
// compact view.
const shortTimelineLimit = 100

type SessionsResponse struct {
	Sessions []visitors.Session `json:"sessions"`
	Total    int                `json:"total"`
	Range    string             `json:"range"`
}

type TimelineResponse struct {
	SessionID   string                    `json:"sessionId"`
	Nodes       []tracking.ClassifiedNode `json:"nodes"`
	TotalEvents int                       `json:"totalEvents"`
	Truncated   bool                      `json:"truncated"`
}

// SessionsIndexAction lists tracked sessions inside the requested time range,
// optionally filtered to one tracked user. Unknown range labels fall back to
// the last 7 days.
func SessionsIndexAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	rangeLabel := ctx.Query("range", "7d")
	from, to := timeframe.ParseRange(rangeLabel, time.Now().UTC())

	var sessions []visitors.Session
	var err error

	if rawUserID := ctx.Query("userId", ""); rawUserID != "" {
		userID, parseErr := strconv.Atoi(rawUserID)
		if parseErr != nil || userID <= 0 {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid userId",
			})
		}
		sessions, err = visitors.SessionsForVisitor(db, uint(userID))
		if err == nil {
			sessions = sessionsWithin(sessions, from, to)
		}
	} else {
		sessions, err = visitors.SessionsInRange(db, from, to)
	}

	if err != nil {
		ctx.Logger.Error("Failed to load sessions", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load sessions",
		})
	}

	return ctx.JSON(SessionsResponse{
		Sessions: sessions,
		Total:    len(sessions),
		Range:    rangeLabel,
	})
}

// SessionTimelineAction returns the classified event timeline for one
// session. ?short=true caps the result to the compact view limit.
func SessionTimelineAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	sessionID := ctx.Params("id")
	if sessionID == "" {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Session id is required",
		})
	}

	if _, err := visitors.SessionBySessionID(db, sessionID); err != nil {
		ctx.Logger.Debug("Session not found", slog.String("sessionId", sessionID))
		return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	events, err := tracking.EventsForSession(db, sessionID)
	if err != nil {
		ctx.Logger.Error("Failed to load session events",
			slog.String("sessionId", sessionID),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session timeline",
		})
	}

	nodes := tracking.BuildTimeline(events)
	total := len(nodes)

	if short := ctx.Query("short", ""); short == "true" || short == "1" {
		nodes = tracking.TruncateTimeline(nodes, shortTimelineLimit)
	}

	return ctx.JSON(TimelineResponse{
		SessionID:   sessionID,
		Nodes:       nodes,
		TotalEvents: total,
		Truncated:   len(nodes) < total,
	})
}

func sessionsWithin(sessions []visitors.Session, from, to time.Time) []visitors.Session {
	filtered := make([]visitors.Session, 0, len(sessions))
	for _, s := range sessions {
		if !s.StartTime.Before(from) && s.StartTime.Before(to) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
