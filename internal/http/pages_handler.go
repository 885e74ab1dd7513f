package http

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"log/slog"

	"leadlens/internal/pages"
	"leadlens/internal/timeframe"
)

type PagesResponse struct {
	Pages []pages.LandingPage `json:"pages"`
	Total int                 `json:"total"`
	Range string              `json:"range"`
}

// PagesIndexAction lists landing pages grouped by normalized URL so tracking
// variants of the same page show up as a single row.
func PagesIndexAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	rangeLabel := ctx.Query("range", "7d")
	from, to := timeframe.ParseRange(rangeLabel, time.Now().UTC())

	grouped, err := pages.LandingPagesInRange(db, from, to)
	if err != nil {
		ctx.Logger.Error("Failed to load landing pages", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load pages",
		})
	}

	return ctx.JSON(PagesResponse{
		Pages: grouped,
		Total: len(grouped),
		Range: rangeLabel,
	})
}
