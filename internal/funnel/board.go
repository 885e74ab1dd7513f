package funnel

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Lead is a stored lead/booking record. Status uses the persistence
// vocabulary; the board stage is derived on read.
type Lead struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	Email     string    `gorm:"index" json:"email"`
	Phone     string    `json:"phone"`
	Source    string    `gorm:"index" json:"source"`
	Status    string    `gorm:"index;not null;default:new" json:"status"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FunnelItem is a lead reprojected into board vocabulary.
type FunnelItem struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Source    string    `json:"source"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Board groups funnel items by stage in board layout order.
type Board struct {
	Stages []BoardStage `json:"stages"`
}

type BoardStage struct {
	Name  string       `json:"name"`
	Items []FunnelItem `json:"items"`
}

// LoadBoard fetches all leads and arranges them into board columns.
// Every stage appears even when empty so the board renders a full row.
func LoadBoard(db *gorm.DB) (*Board, error) {
	var leads []Lead
	if err := db.Order("created_at DESC").Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}

	byStage := make(map[string][]FunnelItem, len(StageOrder))
	for _, lead := range leads {
		stage := ToFunnelStatus(lead.Status)
		byStage[stage] = append(byStage[stage], FunnelItem{
			ID:        lead.ID,
			Name:      lead.Name,
			Email:     lead.Email,
			Phone:     lead.Phone,
			Source:    lead.Source,
			Status:    stage,
			CreatedAt: lead.CreatedAt,
		})
	}

	board := &Board{Stages: make([]BoardStage, 0, len(StageOrder))}
	for _, stage := range StageOrder {
		items := byStage[stage]
		if items == nil {
			items = []FunnelItem{}
		}
		board.Stages = append(board.Stages, BoardStage{Name: stage, Items: items})
	}
	return board, nil
}

// MoveLead persists a board stage move, translating the stage back to
// the persistence vocabulary at the storage boundary.
func MoveLead(logger *slog.Logger, db *gorm.DB, leadID uint, stage string) (*Lead, error) {
	var lead Lead
	if err := db.First(&lead, leadID).Error; err != nil {
		return nil, fmt.Errorf("failed to load lead %d: %w", leadID, err)
	}

	status := ToDBStatus(stage)
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&Lead{}).Where("id = ?", leadID).
			Update("status", status).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to move lead %d: %w", leadID, err)
	}

	lead.Status = status
	return &lead, nil
}

// CreateLead stores a new lead. An empty status defaults to new.
func CreateLead(logger *slog.Logger, db *gorm.DB, lead *Lead) error {
	if lead.Status == "" {
		lead.Status = StatusNew
	}
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(lead).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}
