package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/utils"
)

type MutationOutcome string

const (
	MutationApplied    MutationOutcome = "applied"
	MutationReconciled MutationOutcome = "reconciled"
	MutationReverted   MutationOutcome = "reverted"
)

// MutationLog records every inline edit and how it ended.
type MutationLog struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Username      string          `gorm:"index;size:100" json:"username"`
	Role          string          `gorm:"size:20" json:"role,omitempty"`
	Report        string          `gorm:"index;size:50;not null" json:"report"`
	RecordId      string          `gorm:"index;size:64;not null" json:"record_id"`
	Updates       map[string]any  `gorm:"type:text;serializer:json" json:"updates"`
	Previous      map[string]any  `gorm:"type:text;serializer:json" json:"previous"`
	Outcome       MutationOutcome `gorm:"size:20;not null" json:"outcome"`
	Error         string          `gorm:"type:text" json:"error,omitempty"`
	CorrelationId string          `gorm:"size:64" json:"correlation_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// WriteMutationLog is best effort: failures are logged, never returned.
func WriteMutationLog(ctx context.Context, entry MutationLog) {
	db := config.GetDB()
	if db == nil {
		return
	}
	if entry.Username == "" {
		entry.Username, _ = utils.GetUsernameFromContext(ctx)
	}
	if entry.Role == "" {
		entry.Role, _ = utils.GetRoleFromContext(ctx)
	}
	if entry.CorrelationId == "" {
		entry.CorrelationId, _ = utils.GetCorrelationIdFromContext(ctx)
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		config.LogError(config.GetLogger(), "mutationLog.go", "WriteMutationLog", "writing mutation log", entry.RecordId, err)
	}
}
