// Package service holds the generation coordinator: the single writer of
// checklist records and the only component that sequences resolve, enrich,
// validate, and persist.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"visadesk/internal/checklist"
	"visadesk/internal/checklist/lock"
	genmetrics "visadesk/internal/checklist/metrics"
	chstore "visadesk/internal/checklist/store"
	"visadesk/internal/enrichment"
	"visadesk/internal/platform/config"
	"visadesk/internal/profile"
	"visadesk/internal/rules"
	dErrors "visadesk/pkg/domain-errors"
	audit "visadesk/pkg/platform/audit"
	"visadesk/pkg/platform/sentinel"
	"visadesk/pkg/requestcontext"
)

// failedMessage is the only text a caller ever sees for a failed generation.
// Raw model and infrastructure errors stay in the logs.
const failedMessage = "We could not prepare your document checklist. Please try again later."

// RuleSource is the slice of the rule store the coordinator needs.
type RuleSource interface {
	GetApproved(ctx context.Context, countryCode, visaType string) (*rules.RuleSet, error)
}

// Service coordinates checklist generation for visa applications. It owns the
// processing/ready/failed lifecycle; handlers and background jobs go through
// it rather than touching the store.
type Service struct {
	store    chstore.Store
	rules    RuleSource
	profiles profile.Source
	enricher enrichment.Client
	locker   lock.Locker
	audit    audit.Publisher
	metrics  *genmetrics.Metrics
	logger   *slog.Logger
	cfg      config.GenerationConfig
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source; tests pin GeneratedAt with it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires the coordinator. The audit publisher and metrics may be
// nil-ish (NopPublisher, nil *Metrics) in tests.
func NewService(
	store chstore.Store,
	ruleSource RuleSource,
	profiles profile.Source,
	enricher enrichment.Client,
	locker lock.Locker,
	publisher audit.Publisher,
	metrics *genmetrics.Metrics,
	logger *slog.Logger,
	cfg config.GenerationConfig,
	opts ...Option,
) *Service {
	if publisher == nil {
		publisher = audit.NopPublisher{}
	}
	s := &Service{
		store:    store,
		rules:    ruleSource,
		profiles: profiles,
		enricher: enricher,
		locker:   locker,
		audit:    publisher,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		tracer:   otel.Tracer("visadesk/checklist"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the checklist for an application without ever blocking on
// generation. An absent record starts generation and reports processing; a
// ready record generated against a superseded rule set version is regenerated
// the same way. Failed records are returned as-is; Regenerate with force is
// the explicit way out of failed.
func (s *Service) Get(ctx context.Context, applicationID string) (*checklist.DocumentChecklist, error) {
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "application id is required")
	}

	ctx, span := s.tracer.Start(ctx, "checklist.Get")
	defer span.End()

	record, prof, err := s.gather(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		// Questionnaire source unavailable but a record exists: serve it
		// rather than failing the read.
		return record, nil
	}

	approved, err := s.rules.GetApproved(ctx, prof.Meta.CountryCode, prof.Meta.VisaType)
	if err != nil {
		if record != nil {
			return record, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "rule store unavailable")
	}

	switch {
	case record == nil:
		return s.startGeneration(ctx, applicationID, *prof, approved)
	case record.Status == checklist.StatusProcessing,
		record.Status == checklist.StatusFailed:
		return record, nil
	case s.fresh(record, approved):
		s.metrics.IncCacheHits()
		return record, nil
	default:
		// Ready but generated against a superseded rule set version.
		return s.startGeneration(ctx, applicationID, *prof, approved)
	}
}

// Regenerate explicitly re-runs generation. A record already processing is
// returned untouched; a failed record is only re-run when force is set.
func (s *Service) Regenerate(ctx context.Context, applicationID string, force bool) (*checklist.DocumentChecklist, error) {
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "application id is required")
	}

	ctx, span := s.tracer.Start(ctx, "checklist.Regenerate")
	defer span.End()

	record, prof, err := s.gather(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "questionnaire source unavailable")
	}

	if record != nil {
		if record.Status == checklist.StatusProcessing {
			return record, nil
		}
		if record.Status == checklist.StatusFailed && !force {
			return record, nil
		}
	}

	approved, err := s.rules.GetApproved(ctx, prof.Meta.CountryCode, prof.Meta.VisaType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "rule store unavailable")
	}
	return s.startGeneration(ctx, applicationID, *prof, approved)
}

// Delete removes the checklist record; an in-flight generation for the same
// application discards its result when it finds the record gone.
func (s *Service) Delete(ctx context.Context, applicationID string) error {
	if err := s.store.Delete(ctx, applicationID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete checklist")
	}
	return nil
}

// gather loads the stored record and the applicant profile concurrently. The
// record pointer is nil when no record exists; the profile pointer is nil only
// when the questionnaire source is unavailable and a record exists to fall
// back to.
func (s *Service) gather(ctx context.Context, applicationID string) (*checklist.DocumentChecklist, *profile.ApplicantProfile, error) {
	var (
		record    *checklist.DocumentChecklist
		recordErr error
		raw       profile.RawQuestionnaire
		profErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record, recordErr = s.store.Get(gctx, applicationID)
		if recordErr != nil && !errors.Is(recordErr, sentinel.ErrNotFound) {
			return recordErr
		}
		return nil
	})
	g.Go(func() error {
		raw, profErr = s.profiles.Fetch(gctx, applicationID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "load checklist record")
	}

	if recordErr != nil {
		record = nil
	}

	if profErr != nil {
		if errors.Is(profErr, sentinel.ErrNotFound) {
			return nil, nil, dErrors.Wrap(profErr, dErrors.CodeNotFound, "application not found")
		}
		if record != nil {
			return record, nil, nil
		}
		return nil, nil, dErrors.Wrap(profErr, dErrors.CodeUnavailable, "questionnaire source unavailable")
	}

	prof := profile.Build(raw)
	return record, &prof, nil
}

// fresh reports whether a ready record was generated against the currently
// approved rule set version. Generic-mode records carry version 0 and stay
// fresh only while no version is approved.
func (s *Service) fresh(record *checklist.DocumentChecklist, approved *rules.RuleSet) bool {
	if approved == nil {
		return record.RuleSetVersionUsed == 0
	}
	return record.RuleSetVersionUsed == approved.Version
}

// startGeneration acquires the per-application lock, persists the processing
// record, and launches generation in the background. A held lock means another
// worker is already generating; the caller just observes processing.
func (s *Service) startGeneration(ctx context.Context, applicationID string, prof profile.ApplicantProfile, approved *rules.RuleSet) (*checklist.DocumentChecklist, error) {
	release, err := s.locker.Acquire(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrLockHeld) {
			if record, getErr := s.store.Get(ctx, applicationID); getErr == nil {
				return record, nil
			}
			// Lock holder has not persisted processing yet; report it anyway.
			return &checklist.DocumentChecklist{
				ApplicationID: applicationID,
				Status:        checklist.StatusProcessing,
				GeneratedAt:   s.now(),
			}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "generation lock unavailable")
	}

	processing := &checklist.DocumentChecklist{
		ApplicationID: applicationID,
		Status:        checklist.StatusProcessing,
		GeneratedAt:   s.now(),
	}
	if err := s.store.Put(ctx, processing); err != nil {
		release(ctx)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist processing state")
	}

	s.metrics.IncGenerationsStarted()
	s.audit.Publish(ctx, audit.Event{
		Category:      audit.CategoryOperations,
		Action:        audit.EventGenerationStarted,
		ApplicationID: applicationID,
		UserID:        requestcontext.UserID(ctx),
		RequestID:     requestcontext.RequestID(ctx),
		CountryCode:   prof.Meta.CountryCode,
		VisaType:      prof.Meta.VisaType,
	})

	go s.runGeneration(applicationID, prof, newStrategy(approved, prof), release)

	return processing, nil
}

// runGeneration is the background half of a generation attempt. It owns the
// lock for its duration and performs exactly one final persist.
func (s *Service) runGeneration(applicationID string, prof profile.ApplicantProfile, strat strategy, release lock.ReleaseFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GenerateTimeout)
	defer cancel()
	defer release(ctx)

	ctx, span := s.tracer.Start(ctx, "checklist.Generate")
	defer span.End()

	start := s.now()
	record := s.generate(ctx, applicationID, prof, strat)
	s.metrics.ObserveGenerationDuration(time.Since(start).Seconds())

	// Conditional update: if the application was deleted mid-flight the row
	// is gone, and the result is discarded rather than resurrected.
	if err := s.store.Update(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.InfoContext(ctx, "discarding checklist for deleted application",
				"application_id", applicationID)
			return
		}
		s.logger.ErrorContext(ctx, "persist generated checklist",
			"application_id", applicationID, "error", err)
		return
	}

	event := audit.Event{
		Category:      audit.CategoryOperations,
		ApplicationID: applicationID,
		CountryCode:   prof.Meta.CountryCode,
		VisaType:      prof.Meta.VisaType,
	}
	if record.Status == checklist.StatusReady {
		s.metrics.IncGenerationsSucceeded()
		event.Action = audit.EventChecklistReady
	} else {
		s.metrics.IncGenerationsFailed()
		event.Action = audit.EventGenerationFailed
		event.Reason = record.ErrorMessage
	}
	s.audit.Publish(ctx, event)
}

// generate runs enrich-then-validate with the retry ladder: transient infra
// errors back off inside one attempt; an out-of-band count or invalid model
// output earns exactly one strict retry; everything after that is failed.
// It always returns a terminal record, never an error.
func (s *Service) generate(ctx context.Context, applicationID string, prof profile.ApplicantProfile, strat strategy) *checklist.DocumentChecklist {
	band := checklist.Band{Min: s.cfg.MinItems, Max: s.cfg.MaxItems}

	items, err := s.enrichValidated(ctx, applicationID, prof, strat, band, false)
	if err != nil && s.strictRetryable(err) {
		s.metrics.IncEnrichmentRetries()
		s.logger.WarnContext(ctx, "retrying enrichment in strict mode",
			"application_id", applicationID, "error", err)
		items, err = s.enrichValidated(ctx, applicationID, prof, strat, band, true)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "checklist generation failed",
			"application_id", applicationID,
			"country", prof.Meta.CountryCode,
			"visa_type", prof.Meta.VisaType,
			"error", err)
		return s.failedRecord(applicationID)
	}

	if strat.enforceCore && !checklist.CorePreserved(items, strat.base) {
		s.logger.ErrorContext(ctx, "core preservation violated after validation",
			"application_id", applicationID)
		return s.failedRecord(applicationID)
	}

	return &checklist.DocumentChecklist{
		ApplicationID:      applicationID,
		Status:             checklist.StatusReady,
		Items:              items,
		RuleSetVersionUsed: strat.version,
		GeneratedAt:        s.now(),
		AIGenerated:        true,
	}
}

// strictRetryable reports whether a first-attempt failure warrants the single
// strict retry. Transient exhaustion is infrastructure, not model behavior;
// fatal validation means content the strict instruction cannot conjure.
func (s *Service) strictRetryable(err error) bool {
	var bandErr *checklist.BandError
	if errors.As(err, &bandErr) {
		return true
	}
	var fatalVal *checklist.FatalValidationError
	if errors.As(err, &fatalVal) {
		return false
	}
	return enrichment.IsFatal(err)
}

// enrichValidated performs one logical enrichment attempt: the model call with
// bounded backoff on transient infra errors, then validation against the base
// floor.
func (s *Service) enrichValidated(ctx context.Context, applicationID string, prof profile.ApplicantProfile, strat strategy, band checklist.Band, strict bool) ([]checklist.Item, error) {
	req := enrichment.Request{
		ApplicationID:  applicationID,
		BaseItems:      strat.base,
		Profile:        prof,
		KnowledgeNotes: strat.notes,
		Strict:         strict,
		MinItems:       band.Min,
		MaxItems:       band.Max,
	}

	var (
		items    []checklist.Item
		warnings []string
		err      error
	)
	for attempt := 0; ; attempt++ {
		items, warnings, err = s.enricher.Enrich(ctx, req)
		if err == nil || !enrichment.IsTransient(err) || attempt >= s.cfg.InfraRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.InfraBackoff * time.Duration(attempt+1)):
		}
	}
	if err != nil {
		return nil, err
	}

	for _, warning := range warnings {
		s.logger.WarnContext(ctx, "enrichment warning",
			"application_id", applicationID, "warning", warning)
	}

	return checklist.ValidateAndFix(items, strat.base, band)
}

func (s *Service) failedRecord(applicationID string) *checklist.DocumentChecklist {
	return &checklist.DocumentChecklist{
		ApplicationID: applicationID,
		Status:        checklist.StatusFailed,
		GeneratedAt:   s.now(),
		ErrorMessage:  failedMessage,
	}
}
