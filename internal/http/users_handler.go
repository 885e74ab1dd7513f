package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"log/slog"

	"leadlens/internal/config"
	"leadlens/internal/pages"
	"leadlens/internal/timeframe"
	"leadlens/internal/visitors"
)

// TrackedUser is the dashboard view of a visitor: the raw fingerprint stays
// server-side, the UI gets the readable alias.
type TrackedUser struct {
	ID            uint      `json:"id"`
	Alias         string    `json:"alias"`
	DeviceType    string    `json:"deviceType"`
	Location      string    `json:"location"`
	LocationName  string    `json:"locationName"`
	Referrer      string    `json:"referrer"`
	FirstVisit    time.Time `json:"firstVisit"`
	LastActivity  time.Time `json:"lastActivity"`
	SessionsCount int       `json:"sessionsCount"`
	IsActive      bool      `json:"isActive"`
}

type UsersResponse struct {
	Users []TrackedUser `json:"users"`
	Total int           `json:"total"`
	Range string        `json:"range"`
}

// UsersIndexAction lists tracked users active inside the requested time
// range, optionally narrowed to users whose sessions entered through one
// landing page.
func UsersIndexAction(ctx *cartridge.Context) error {
	db := ctx.DB()
	cfg := config.GetConfig()

	rangeLabel := ctx.Query("range", "7d")
	now := time.Now().UTC()
	from, to := timeframe.ParseRange(rangeLabel, now)

	var found []visitors.Visitor
	var err error

	if rawPageID := ctx.Query("landingPageId", ""); rawPageID != "" {
		pageID, parseErr := strconv.Atoi(rawPageID)
		if parseErr != nil || pageID <= 0 {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid landingPageId",
			})
		}
		page, pageErr := pages.LandingPageByID(db, uint(pageID))
		if pageErr != nil {
			ctx.Logger.Debug("Landing page not found", slog.Int("landingPageId", pageID))
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Landing page not found",
			})
		}
		found, err = visitors.VisitorsForLandingPage(db, page.NormalizedURL, from, to)
	} else {
		found, err = visitors.VisitorsInRange(db, from, to)
	}

	if err != nil {
		ctx.Logger.Error("Failed to load visitors", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load users",
		})
	}

	window := time.Duration(cfg.ActiveVisitorWindowMinutes) * time.Minute
	users := make([]TrackedUser, 0, len(found))
	for _, v := range found {
		users = append(users, TrackedUser{
			ID:            v.ID,
			Alias:         visitors.Alias(v.Fingerprint),
			DeviceType:    v.DeviceType,
			Location:      v.Location,
			LocationName:  v.LocationName(),
			Referrer:      v.Referrer,
			FirstVisit:    v.FirstVisit,
			LastActivity:  v.LastActivity,
			SessionsCount: v.SessionsCount,
			IsActive:      v.IsActive(now, window),
		})
	}

	return ctx.JSON(UsersResponse{
		Users: users,
		Total: len(users),
		Range: rangeLabel,
	})
}

// UserSessionsAction lists the session history of a single tracked user.
func UserSessionsAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	id, err := ctx.ParamsInt("id")
	if err != nil || id <= 0 {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user id",
		})
	}

	visitor, err := visitors.VisitorByID(db, uint(id))
	if err != nil {
		ctx.Logger.Debug("Visitor not found", slog.Int("id", id))
		return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	sessions, err := visitors.SessionsForVisitor(db, visitor.ID)
	if err != nil {
		ctx.Logger.Error("Failed to load visitor sessions",
			slog.Uint64("visitorId", uint64(visitor.ID)),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load user sessions",
		})
	}

	return ctx.JSON(fiber.Map{
		"userId":   visitor.ID,
		"alias":    visitors.Alias(visitor.Fingerprint),
		"sessions": sessions,
		"total":    len(sessions),
	})
}
