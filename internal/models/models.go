package models

import "time"

// VoiceModelState mirrors the provider-side training lifecycle.
type VoiceModelState string

const (
	StateCreated  VoiceModelState = "created"
	StateTraining VoiceModelState = "training"
	StateTrained  VoiceModelState = "trained"
	StateFailed   VoiceModelState = "failed"
)

// ConfirmationSource records which channel delivered a purchase confirmation.
type ConfirmationSource string

const (
	SourceClient  ConfirmationSource = "client"
	SourceWebhook ConfirmationSource = "webhook"
)

type User struct {
	ID               int64
	WhopUserID       string
	WhopExperienceID string
	Credits          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type VoiceModel struct {
	ID              string
	UserID          int64
	ProviderModelID string
	Title           string
	State           VoiceModelState
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type GeneratedAudio struct {
	ID           string
	UserID       int64
	VoiceModelID string
	Text         string
	AudioURL     string
	CreatedAt    time.Time
}

// ProcessedConfirmation is the idempotency record for a purchase confirmation.
// The correlation id is the receipt id shared by the client callback and the
// provider webhook; its unique constraint is what makes crediting exactly-once.
type ProcessedConfirmation struct {
	ID            int64
	CorrelationID string
	UserID        int64
	PackageID     string
	Credits       int
	Source        ConfirmationSource
	ProcessedAt   time.Time
}

// Package is a purchasable credit bundle. The catalog is defined server-side
// only; confirmation payloads are never trusted for amounts.
type Package struct {
	ID         string `json:"id"`
	Credits    int    `json:"credits"`
	PriceCents int    `json:"amount"`
}
