package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/smallbiznis/payrail/internal/clock"
	"github.com/smallbiznis/payrail/internal/config"
	obscontext "github.com/smallbiznis/payrail/internal/observability/context"
	obslogger "github.com/smallbiznis/payrail/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/payrail/internal/observability/metrics"
	reconcileservice "github.com/smallbiznis/payrail/internal/reconcile/service"
	"github.com/smallbiznis/payrail/internal/webhook/adapters"
	"github.com/smallbiznis/payrail/internal/webhook/domain"
	"github.com/smallbiznis/payrail/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Cfg        config.Config
	Repo       domain.Repository
	Adapters   *adapters.Registry
	Reconciler *reconcileservice.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	secrets    map[string]string
	repo       domain.Repository
	adapters   *adapters.Registry
	reconciler *reconcileservice.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("webhook.service"),
		clock: p.Clock,
		secrets: map[string]string{
			"razorpay": p.Cfg.Razorpay.WebhookSecret,
		},
		repo:       p.Repo,
		adapters:   p.Adapters,
		reconciler: p.Reconciler,
		obsMetrics: p.ObsMetrics,
	}
}

// Ingest verifies, records and reconciles one delivery.
// Signature failures are recorded and answered with an unsuccessful result, not an error.
// A returned error means nothing was reconciled; store faults leave the event unprocessed for redelivery.
func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) (*domain.IngestResult, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return nil, domain.ErrInvalidProvider
	}
	if !s.adapters.ProviderExists(provider) {
		return nil, domain.ErrProviderNotFound
	}
	adapter, err := s.adapters.NewAdapter(provider, domain.AdapterConfig{WebhookSecret: s.secrets[provider]})
	if err != nil {
		return nil, err
	}

	ctx, _ = correlation.EnsureCorrelationID(ctx)
	ctx = obscontext.WithProvider(ctx, provider)
	log := obslogger.WithContext(ctx, s.log)

	verifyErr := adapter.Verify(ctx, payload, headers)
	if verifyErr != nil && !errors.Is(verifyErr, domain.ErrInvalidSignature) {
		return nil, verifyErr
	}
	verified := verifyErr == nil

	env, err := adapter.Parse(ctx, payload, headers)
	if err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, "", obsmetrics.OutcomeRejected)
		log.Warn("webhook payload rejected", zap.Error(err))
		return nil, err
	}
	log = log.With(zap.String("event_id", env.ID), zap.String("event", env.Event))

	record := &domain.EventRecord{
		ID:                env.ID,
		Provider:          provider,
		Entity:            env.Entity,
		Event:             env.Event,
		Payload:           datatypes.JSON(payload),
		SignatureVerified: verified,
		CreatedAt:         s.clock.Now(),
	}
	if env.AccountID != "" {
		accountID := env.AccountID
		record.AccountID = &accountID
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, record)
	if err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, env.Event, obsmetrics.OutcomeError)
		log.Error("failed to record webhook event", zap.Error(err))
		return nil, fmt.Errorf("record webhook event: %w", err)
	}

	if !verified {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, env.Event, obsmetrics.OutcomeRejected)
		log.Warn("webhook signature verification failed", zap.Bool("recorded", inserted))
		return &domain.IngestResult{
			Success: false,
			Message: "Invalid webhook signature",
			EventID: env.ID,
			Outcome: obsmetrics.OutcomeRejected,
		}, nil
	}

	var (
		duplicate bool
		stored    json.RawMessage
		success   bool
		message   string
		outcome   string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.LockEvent(ctx, tx, env.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("webhook event %s missing after insert", env.ID)
		}
		if current.Processed {
			duplicate = true
			stored = json.RawMessage(current.Result)
			return nil
		}
		if !current.SignatureVerified {
			if err := s.repo.MarkVerified(ctx, tx, env.ID); err != nil {
				return err
			}
		}

		result, err := s.reconciler.Dispatch(ctx, tx, env)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			return err
		}
		if err := s.repo.MarkProcessed(ctx, tx, env.ID, datatypes.JSON(encoded), s.clock.Now()); err != nil {
			return err
		}

		stored = encoded
		success = result.Success
		message = result.Message
		switch {
		case !result.Success:
			outcome = obsmetrics.OutcomeFailed
		case result.Acknowledged:
			outcome = obsmetrics.OutcomeAcknowledged
		default:
			outcome = obsmetrics.OutcomeProcessed
		}
		return nil
	})
	if err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, env.Event, obsmetrics.OutcomeError)
		log.Error("webhook reconciliation failed", zap.Error(err))
		return nil, fmt.Errorf("reconcile webhook event: %w", err)
	}

	if duplicate {
		success, message = storedOutcome(stored)
		s.obsMetrics.RecordWebhookEvent(ctx, provider, env.Event, obsmetrics.OutcomeDuplicate)
		log.Info("webhook event already processed")
		return &domain.IngestResult{
			Success:   success,
			Message:   message,
			EventID:   env.ID,
			Duplicate: true,
			Result:    stored,
			Outcome:   obsmetrics.OutcomeDuplicate,
		}, nil
	}

	s.obsMetrics.RecordWebhookEvent(ctx, provider, env.Event, outcome)
	log.Info("webhook event processed", zap.Bool("success", success), zap.String("outcome", outcome))
	return &domain.IngestResult{
		Success: success,
		Message: message,
		EventID: env.ID,
		Result:  stored,
		Outcome: outcome,
	}, nil
}

func storedOutcome(stored json.RawMessage) (bool, string) {
	var prior struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if len(stored) == 0 || json.Unmarshal(stored, &prior) != nil {
		return true, "Event already processed"
	}
	return prior.Success, prior.Message
}

// Get returns a stored webhook event for auditing.
func (s *Service) Get(ctx context.Context, id string) (*domain.EventRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrEventNotFound
	}
	event, err := s.repo.FindEvent(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("find webhook event: %w", err)
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}
