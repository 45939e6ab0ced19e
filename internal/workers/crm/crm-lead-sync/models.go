package crmleadsync

import (
	"context"
	"time"

	"lead-capture/internal/common/hubspot"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"
)

// CRM is the subset of the HubSpot client the sync needs.
type CRM interface {
	SearchContactByEmail(ctx context.Context, email string) (*hubspot.Object, error)
	CreateContact(ctx context.Context, properties map[string]string) (string, error)
	UpdateContact(ctx context.Context, contactID string, properties map[string]string) error
	CreateDeal(ctx context.Context, properties map[string]string) (string, error)
	CreateTask(ctx context.Context, properties map[string]string) (string, error)
	Associate(ctx context.Context, fromType, fromID, toType, toID, assocType string) error
}

type Output struct {
	ContactID      string    `json:"contactId"`
	DealID         string    `json:"dealId"`
	TaskID         string    `json:"taskId,omitempty"`
	ContactCreated bool      `json:"contactCreated"`
	SyncedAt       time.Time `json:"syncedAt"`
}

type ServiceDependencies struct {
	Logger logger.Logger
	// Client overrides the HubSpot client built from config.
	Client CRM
}

// HubSpot property values for business stages.
var stageValues = map[models.BusinessStage]string{
	models.StageStartup:     "startup",
	models.StageGrowth:      "growing",
	models.StageEstablished: "established",
	models.StageMature:      "enterprise",
}

const legalBasisConsent = "Freely given consent from contact"
