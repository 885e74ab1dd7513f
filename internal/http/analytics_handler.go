package http

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"log/slog"

	"leadlens/internal/analytics"
	"leadlens/internal/insights"
	"leadlens/internal/timeframe"
)

// AnalyticsShowAction returns the advanced analytics rollup for one period
// window. Defaults to today's daily window; a cached rollup is served when one
// exists, otherwise it is generated on the fly.
func AnalyticsShowAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	period, periodKey, err := periodParams(ctx)
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	rollup, err := analytics.LoadOrGenerate(ctx.Logger, db, period, periodKey)
	if err != nil {
		ctx.Logger.Error("Failed to load analytics",
			slog.String("period", string(period)),
			slog.String("periodKey", periodKey),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load analytics",
		})
	}

	return ctx.JSON(rollup)
}

// InsightsIndexAction returns generated insights for one period window,
// comparing against the previous window when a rollup for it exists.
func InsightsIndexAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	period, periodKey, err := periodParams(ctx)
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	current, err := analytics.LoadOrGenerate(ctx.Logger, db, period, periodKey)
	if err != nil {
		ctx.Logger.Error("Failed to load analytics for insights",
			slog.String("period", string(period)),
			slog.String("periodKey", periodKey),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load insights",
		})
	}

	// A missing previous rollup only disables period-over-period insights.
	previous, err := analytics.PreviousRollup(db, period, periodKey)
	if err != nil {
		ctx.Logger.Debug("No previous rollup for comparison",
			slog.String("period", string(period)),
			slog.String("periodKey", periodKey),
			slog.Any("error", err))
		previous = nil
	}

	generated := insights.Generate(*current, previous)

	return ctx.JSON(fiber.Map{
		"period":    period,
		"periodKey": periodKey,
		"insights":  generated,
		"total":     len(generated),
	})
}

func periodParams(ctx *cartridge.Context) (timeframe.Period, string, error) {
	period := timeframe.Period(ctx.Query("period", string(timeframe.PeriodDaily)))
	if !timeframe.ValidPeriod(period) {
		return "", "", fiber.NewError(http.StatusBadRequest, "Invalid period")
	}

	periodKey := ctx.Query("key", "")
	if periodKey == "" {
		periodKey = timeframe.KeyFor(period, time.Now().UTC())
	}
	if _, _, err := timeframe.BoundsFor(period, periodKey); err != nil {
		return "", "", fiber.NewError(http.StatusBadRequest, "Invalid period key")
	}

	return period, periodKey, nil
}
