package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/parrotlabs/voiceforge/internal/config"
	"github.com/parrotlabs/voiceforge/internal/models"
	"github.com/parrotlabs/voiceforge/internal/repository"
	"github.com/parrotlabs/voiceforge/internal/whop"
)

// Charger creates provider-side charges. Satisfied by *whop.Client.
type Charger interface {
	ChargeUser(ctx context.Context, whopUserID string, amountCents int, metadata whop.ChargeMetadata) (*whop.InAppPurchase, error)
}

// PaymentService reconciles purchase confirmations from the client callback
// and the provider webhook into exactly-once credit grants.
type PaymentService struct {
	cfg           config.Config
	log           *slog.Logger
	catalog       *Catalog
	users         *repository.UserRepository
	confirmations *repository.ConfirmationRepository
	charger       Charger
}

func NewPaymentService(cfg config.Config, log *slog.Logger, catalog *Catalog, users *repository.UserRepository, confirmations *repository.ConfirmationRepository, charger Charger) *PaymentService {
	return &PaymentService{
		cfg:           cfg,
		log:           log,
		catalog:       catalog,
		users:         users,
		confirmations: confirmations,
		charger:       charger,
	}
}

func (s *PaymentService) Packages() []models.Package {
	return s.catalog.List()
}

// CreateCharge opens a provider-side charge for the package. Amount and
// credits come from the catalog, never from the client.
func (s *PaymentService) CreateCharge(ctx context.Context, user *models.User, packageID string) (*whop.InAppPurchase, error) {
	pkg, err := s.catalog.Lookup(packageID)
	if err != nil {
		return nil, err
	}

	purchase, err := s.charger.ChargeUser(ctx, user.WhopUserID, pkg.PriceCents, whop.ChargeMetadata{
		PackageID:    pkg.ID,
		ExperienceID: user.WhopExperienceID,
		AppUserID:    strconv.FormatInt(user.ID, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create charge: %v", ErrExternalService, err)
	}
	return purchase, nil
}

// ConfirmPurchase is the client confirmation path, invoked after the purchase
// modal reports success. The receipt id doubles as the correlation id shared
// with the webhook path.
func (s *PaymentService) ConfirmPurchase(ctx context.Context, userID int64, packageID, receiptID string) error {
	pkg, err := s.catalog.Lookup(packageID)
	if err != nil {
		return err
	}
	return s.applyConfirmation(ctx, userID, pkg, receiptID, models.SourceClient)
}

type webhookEvent struct {
	Type   string          `json:"type"`
	Action string          `json:"action"`
	Data   *webhookPayment `json:"data"`
}

type webhookPayment struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
}

// HandleWebhook is the asynchronous confirmation path. Delivery is
// at-least-once and unordered relative to ConfirmPurchase; dedup happens on
// the shared correlation id, not on sequencing. A nil return means the event
// should be acknowledged, whether or not it credited anything.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, headers whop.WebhookHeaders) error {
	if headers.HasSignature() {
		if err := whop.VerifyWebhook(payload, headers, s.cfg.WhopWebhookSecret, time.Now()); err != nil {
			return err
		}
	} else if !s.cfg.AcceptUnsignedWebhook {
		return fmt.Errorf("%w: unsigned delivery rejected", whop.ErrSignatureInvalid)
	}

	if len(payload) == 0 {
		s.log.Info("webhook with empty payload acknowledged")
		return nil
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: parse webhook payload: %v", ErrInvalidInput, err)
	}

	eventType := event.Type
	if eventType == "" {
		eventType = event.Action
	}
	if eventType != "payment.succeeded" {
		s.log.Info("ignoring webhook event", "type", eventType)
		return nil
	}

	// Dashboard test deliveries carry a null data object.
	if event.Data == nil {
		s.log.Info("payment webhook with no payment data acknowledged")
		return nil
	}
	if event.Data.ID == "" {
		s.log.Warn("payment webhook missing receipt id, acknowledged without crediting")
		return nil
	}

	packageID := metadataString(event.Data.Metadata, "packageId")
	appUserID := metadataString(event.Data.Metadata, "appUserId")
	if packageID == "" || appUserID == "" {
		s.log.Warn("payment webhook missing metadata, acknowledged without crediting",
			"receipt_id", event.Data.ID)
		return nil
	}
	userID, err := strconv.ParseInt(appUserID, 10, 64)
	if err != nil {
		s.log.Warn("payment webhook with malformed appUserId, acknowledged without crediting",
			"receipt_id", event.Data.ID, "app_user_id", appUserID)
		return nil
	}

	pkg, err := s.catalog.Lookup(packageID)
	if err != nil {
		return err
	}
	return s.applyConfirmation(ctx, userID, pkg, event.Data.ID, models.SourceWebhook)
}

// applyConfirmation is the dedupe-and-credit sequence shared by both
// confirmation channels. The idempotency insert and the credit run in one
// transaction, so a crash between them cannot leave a half-applied state, and
// a duplicate correlation id from either channel is a silent no-op.
func (s *PaymentService) applyConfirmation(ctx context.Context, userID int64, pkg models.Package, correlationID string, source models.ConfirmationSource) error {
	tx, err := s.confirmations.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = s.confirmations.InsertTx(ctx, tx, &models.ProcessedConfirmation{
		CorrelationID: correlationID,
		UserID:        userID,
		PackageID:     pkg.ID,
		Credits:       pkg.Credits,
		Source:        source,
	})
	if errors.Is(err, repository.ErrAlreadyProcessed) {
		_ = tx.Rollback()
		firstSource := source
		if prior, lookupErr := s.confirmations.FindByCorrelationID(ctx, correlationID); lookupErr == nil && prior != nil {
			firstSource = prior.Source
		}
		s.log.Info("duplicate purchase confirmation skipped",
			"correlation_id", correlationID, "source", source, "first_source", firstSource)
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.users.AddCreditsTx(ctx, tx, userID, pkg.Credits); err != nil {
		return fmt.Errorf("credit user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit confirmation: %w", err)
	}

	s.log.Info("purchase credited",
		"user_id", userID, "package_id", pkg.ID, "credits", pkg.Credits,
		"correlation_id", correlationID, "source", source)
	return nil
}

func metadataString(metadata map[string]any, key string) string {
	switch v := metadata[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}
