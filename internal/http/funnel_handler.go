package http

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"
	"log/slog"

	"leadlens/internal/funnel"
)

type MoveLeadParams struct {
	Stage string `json:"stage"`
}

type CreateLeadParams struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Source string `json:"source"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// FunnelBoardAction returns the kanban view of the sales funnel: every stage
// present, leads grouped under their current stage.
func FunnelBoardAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	board, err := funnel.LoadBoard(db)
	if err != nil {
		ctx.Logger.Error("Failed to load funnel board", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load funnel board",
		})
	}

	return ctx.JSON(board)
}

// FunnelMoveAction moves a lead to a new funnel stage.
func FunnelMoveAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	id, err := ctx.ParamsInt("id")
	if err != nil || id <= 0 {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lead id",
		})
	}

	var params MoveLeadParams
	if err := ctx.BodyParser(&params); err != nil || params.Stage == "" {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Stage is required",
		})
	}

	lead, err := funnel.MoveLead(ctx.Logger, db, uint(id), params.Stage)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Lead not found",
			})
		}
		ctx.Logger.Error("Failed to move lead",
			slog.Int("leadId", id),
			slog.String("stage", params.Stage),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to move lead",
		})
	}

	return ctx.JSON(lead)
}

// FunnelCreateAction registers a new lead, defaulting to the first stage.
func FunnelCreateAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	var params CreateLeadParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request",
		})
	}
	if params.Name == "" && params.Email == "" {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Lead name or email is required",
		})
	}

	lead := &funnel.Lead{
		Name:   params.Name,
		Email:  params.Email,
		Phone:  params.Phone,
		Source: params.Source,
		Status: funnel.ToDBStatus(params.Status),
		Notes:  params.Notes,
	}
	if params.Status == "" {
		lead.Status = funnel.StatusNew
	}

	if err := funnel.CreateLead(ctx.Logger, db, lead); err != nil {
		ctx.Logger.Error("Failed to create lead", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create lead",
		})
	}

	return ctx.Status(http.StatusCreated).JSON(lead)
}
