package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"visadesk/internal/checklist"
	"visadesk/internal/checklist/lock"
	chstore "visadesk/internal/checklist/store"
	"visadesk/internal/enrichment"
	"visadesk/internal/platform/config"
	"visadesk/internal/profile"
	rulesstore "visadesk/internal/rules/store"
	dErrors "visadesk/pkg/domain-errors"
	audit "visadesk/pkg/platform/audit"
	"visadesk/pkg/platform/sentinel"
)

type fakeEnricher struct {
	mu      sync.Mutex
	calls   []enrichment.Request
	respond func(req enrichment.Request) ([]checklist.Item, []string, error)
}

func (f *fakeEnricher) Enrich(ctx context.Context, req enrichment.Request) ([]checklist.Item, []string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	respond := f.respond
	f.mu.Unlock()
	return respond(req)
}

func (f *fakeEnricher) setRespond(respond func(req enrichment.Request) ([]checklist.Item, []string, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = respond
}

func (f *fakeEnricher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeEnricher) call(i int) enrichment.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

type fakeProfiles struct {
	mu   sync.Mutex
	raws map[string]profile.RawQuestionnaire
}

func (f *fakeProfiles) Fetch(ctx context.Context, applicationID string) (profile.RawQuestionnaire, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.raws[applicationID]
	if !ok {
		return profile.RawQuestionnaire{}, fmt.Errorf("application %s: %w", applicationID, sentinel.ErrNotFound)
	}
	return raw, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *capturePublisher) Publish(_ context.Context, event audit.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) actions() []audit.AuditEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	actions := make([]audit.AuditEvent, 0, len(p.events))
	for _, e := range p.events {
		actions = append(actions, e.Action)
	}
	return actions
}

type fixture struct {
	service    *Service
	checklists chstore.Store
	rules      rulesstore.Store
	profiles   *fakeProfiles
	enricher   *fakeEnricher
	publisher  *capturePublisher
}

func testConfig() config.GenerationConfig {
	return config.GenerationConfig{
		MinItems:        3,
		MaxItems:        12,
		LockTimeout:     100 * time.Millisecond,
		InfraRetries:    2,
		InfraBackoff:    time.Millisecond,
		GenerateTimeout: 5 * time.Second,
	}
}

func newFixture(t *testing.T, seedRules bool) *fixture {
	t.Helper()

	checklists := chstore.NewInMemory()
	rules := rulesstore.NewInMemory()
	if seedRules {
		_, err := rulesstore.SeedBootstrapRuleSet(rules)
		require.NoError(t, err)
	}

	profiles := &fakeProfiles{raws: map[string]profile.RawQuestionnaire{}}
	enricher := &fakeEnricher{}
	enricher.setRespond(func(req enrichment.Request) ([]checklist.Item, []string, error) {
		return enrichedItems(req, "flight_itinerary"), nil, nil
	})
	publisher := &capturePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := NewService(
		checklists,
		rules,
		profiles,
		enricher,
		lock.NewInMemory(testConfig().LockTimeout),
		publisher,
		nil,
		logger,
		testConfig(),
	)

	return &fixture{
		service:    service,
		checklists: checklists,
		rules:      rules,
		profiles:   profiles,
		enricher:   enricher,
		publisher:  publisher,
	}
}

func boolPtr(b bool) *bool { return &b }

// germanTouristProfile is a self-employed, married applicant traveling alone
// for a long stay: all three conditional seed documents apply.
func germanTouristProfile() profile.RawQuestionnaire {
	return profile.RawQuestionnaire{
		CountryCode:      "DE",
		VisaType:         "tourist",
		TravelPurpose:    "tourism",
		StayDurationDays: 120,
		TravelsAlone:     boolPtr(true),
		EmploymentStatus: "self_employed",
		MonthlyIncome:    900,
		MaritalStatus:    "married",
	}
}

func enrichedItems(req enrichment.Request, extraIDs ...string) []checklist.Item {
	items := append([]checklist.Item{}, req.BaseItems...)
	for _, id := range extraIDs {
		items = append(items, extraItem(id))
	}
	return items
}

func extraItem(id string) checklist.Item {
	return checklist.Item{
		DocumentID:  id,
		Category:    checklist.CategoryOptional,
		Name:        checklist.LocalizedText{EN: id},
		Description: checklist.LocalizedText{EN: id + " description"},
		Priority:    50,
	}
}

func documentIDs(items []checklist.Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, checklist.NormalizeID(item.DocumentID))
	}
	return ids
}

type ServiceSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *ServiceSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) waitTerminal(f *fixture, applicationID string) *checklist.DocumentChecklist {
	s.T().Helper()
	var record *checklist.DocumentChecklist
	s.Require().Eventually(func() bool {
		var err error
		record, err = f.checklists.Get(s.ctx, applicationID)
		return err == nil && record.Status != checklist.StatusProcessing
	}, 2*time.Second, 5*time.Millisecond)
	return record
}

func (s *ServiceSuite) TestFirstReadStartsGeneration() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-1"] = germanTouristProfile()

	record, err := f.service.Get(s.ctx, "app-1")
	s.Require().NoError(err)
	s.Equal(checklist.StatusProcessing, record.Status)

	// The processing state is persisted before the caller gets it back.
	stored, err := f.checklists.Get(s.ctx, "app-1")
	s.Require().NoError(err)
	s.Equal(checklist.StatusProcessing, stored.Status)

	final := s.waitTerminal(f, "app-1")
	s.Equal(checklist.StatusReady, final.Status)
	s.True(final.AIGenerated)
	s.Equal(1, final.RuleSetVersionUsed)

	ids := documentIDs(final.Items)
	s.Contains(ids, "passport")
	s.Contains(ids, "travel_insurance")
	s.Contains(ids, "business_registration")
	s.Contains(ids, "marriage_certificate")
	s.Contains(ids, "extended_bank_statement")
	s.Contains(ids, "flight_itinerary")

	s.Require().Equal(1, f.enricher.callCount())
	req := f.enricher.call(0)
	s.False(req.Strict)
	s.Contains(req.KnowledgeNotes, "EUR 45")
	s.ElementsMatch(
		[]string{"passport", "travel_insurance", "business_registration", "marriage_certificate", "extended_bank_statement"},
		req.BaseDocumentIDs(),
	)

	s.Contains(f.publisher.actions(), audit.EventGenerationStarted)
	s.Contains(f.publisher.actions(), audit.EventChecklistReady)
}

func (s *ServiceSuite) TestGenericModeWhenNoApprovedRuleSet() {
	f := newFixture(s.T(), false)
	f.profiles.raws["app-2"] = germanTouristProfile()

	record, err := f.service.Get(s.ctx, "app-2")
	s.Require().NoError(err)
	s.Equal(checklist.StatusProcessing, record.Status)

	final := s.waitTerminal(f, "app-2")
	s.Equal(checklist.StatusReady, final.Status)
	s.Zero(final.RuleSetVersionUsed)

	// Generic mode anchors on the universal skeleton, not the rule corpus.
	req := f.enricher.call(0)
	s.ElementsMatch(
		[]string{"passport", "application_form", "photo", "financial_proof"},
		req.BaseDocumentIDs(),
	)
}

func (s *ServiceSuite) TestOutOfBandCountEarnsOneStrictRetry() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-3"] = germanTouristProfile()
	f.enricher.setRespond(func(req enrichment.Request) ([]checklist.Item, []string, error) {
		if req.Strict {
			return enrichedItems(req, "flight_itinerary", "hotel_booking"), nil, nil
		}
		extras := make([]string, 10)
		for i := range extras {
			extras[i] = fmt.Sprintf("invented_doc_%d", i)
		}
		return enrichedItems(req, extras...), nil, nil
	})

	_, err := f.service.Get(s.ctx, "app-3")
	s.Require().NoError(err)

	final := s.waitTerminal(f, "app-3")
	s.Equal(checklist.StatusReady, final.Status)
	s.Len(final.Items, 7)

	s.Require().Equal(2, f.enricher.callCount())
	s.False(f.enricher.call(0).Strict)
	s.True(f.enricher.call(1).Strict)
}

func (s *ServiceSuite) TestStrictRetryFailureMarksFailed() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-4"] = germanTouristProfile()
	f.enricher.setRespond(func(req enrichment.Request) ([]checklist.Item, []string, error) {
		extras := make([]string, 10)
		for i := range extras {
			extras[i] = fmt.Sprintf("invented_doc_%d", i)
		}
		return enrichedItems(req, extras...), nil, nil
	})

	_, err := f.service.Get(s.ctx, "app-4")
	s.Require().NoError(err)

	final := s.waitTerminal(f, "app-4")
	s.Equal(checklist.StatusFailed, final.Status)
	s.Equal(failedMessage, final.ErrorMessage)
	s.Empty(final.Items)
	s.False(final.AIGenerated)

	// Exactly one strict retry, never more.
	s.Equal(2, f.enricher.callCount())
	s.Contains(f.publisher.actions(), audit.EventGenerationFailed)
}

func (s *ServiceSuite) TestFatalValidationFailsWithoutRetry() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-5"] = germanTouristProfile()
	f.enricher.setRespond(func(req enrichment.Request) ([]checklist.Item, []string, error) {
		items := enrichedItems(req)
		items = append(items, checklist.Item{DocumentID: "nameless_doc", Category: checklist.CategoryOptional})
		return items, nil, nil
	})

	_, err := f.service.Get(s.ctx, "app-5")
	s.Require().NoError(err)

	final := s.waitTerminal(f, "app-5")
	s.Equal(checklist.StatusFailed, final.Status)
	s.Equal(1, f.enricher.callCount())
}

func (s *ServiceSuite) TestConcurrentReadsRunOneGeneration() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-6"] = germanTouristProfile()

	release := make(chan struct{})
	f.enricher.setRespond(func(req enrichment.Request) ([]checklist.Item, []string, error) {
		<-release
		return enrichedItems(req, "flight_itinerary"), nil, nil
	})

	var wg sync.WaitGroup
	results := make([]*checklist.DocumentChecklist, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record, err := f.service.Get(s.ctx, "app-6")
			assert.NoError(s.T(), err)
			results[i] = record
		}(i)
	}
	wg.Wait()

	for _, record := range results {
		s.Require().NotNil(record)
		s.Equal(checklist.StatusProcessing, record.Status)
	}

	close(release)
	final := s.waitTerminal(f, "app-6")
	s.Equal(checklist.StatusReady, final.Status)
	s.Equal(1, f.enricher.callCount())
}

func (s *ServiceSuite) TestReadyRecordIsServedFromStore() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-7"] = germanTouristProfile()

	_, err := f.service.Get(s.ctx, "app-7")
	s.Require().NoError(err)
	s.waitTerminal(f, "app-7")

	record, err := f.service.Get(s.ctx, "app-7")
	s.Require().NoError(err)
	s.Equal(checklist.StatusReady, record.Status)
	s.Equal(1, f.enricher.callCount())
}

func (s *ServiceSuite) TestApprovedVersionChangeRegenerates() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-8"] = germanTouristProfile()

	_, err := f.service.Get(s.ctx, "app-8")
	s.Require().NoError(err)
	s.waitTerminal(f, "app-8")

	// A newly approved version supersedes the one the record was built from.
	v1, err := f.rules.GetApproved(s.ctx, "DE", "tourist")
	s.Require().NoError(err)
	v2 := *v1
	v2.ID = uuid.New()
	v2.Version = 2
	v2.IsApproved = false
	s.Require().NoError(f.rules.Create(s.ctx, &v2))
	s.Require().NoError(f.rules.Approve(s.ctx, v2.ID))

	record, err := f.service.Get(s.ctx, "app-8")
	s.Require().NoError(err)
	s.Equal(checklist.StatusProcessing, record.Status)

	final := s.waitTerminal(f, "app-8")
	s.Equal(checklist.StatusReady, final.Status)
	s.Equal(2, final.RuleSetVersionUsed)
	s.Equal(2, f.enricher.callCount())
}

func (s *ServiceSuite) TestFailedRecordNeedsForceToRegenerate() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-9"] = germanTouristProfile()
	f.enricher.setRespond(func(req enrichment.Request) ([]checklist.Item, []string, error) {
		return nil, nil, enrichment.NewFatalError(errors.New("model returned prose"))
	})

	_, err := f.service.Get(s.ctx, "app-9")
	s.Require().NoError(err)
	final := s.waitTerminal(f, "app-9")
	s.Equal(checklist.StatusFailed, final.Status)
	callsAfterFailure := f.enricher.callCount()

	// Plain reads and non-forced regeneration leave the failed record alone.
	record, err := f.service.Get(s.ctx, "app-9")
	s.Require().NoError(err)
	s.Equal(checklist.StatusFailed, record.Status)

	record, err = f.service.Regenerate(s.ctx, "app-9", false)
	s.Require().NoError(err)
	s.Equal(checklist.StatusFailed, record.Status)
	s.Equal(callsAfterFailure, f.enricher.callCount())

	f.enricher.setRespond(func(req enrichment.Request) ([]checklist.Item, []string, error) {
		return enrichedItems(req, "flight_itinerary"), nil, nil
	})
	record, err = f.service.Regenerate(s.ctx, "app-9", true)
	s.Require().NoError(err)
	s.Equal(checklist.StatusProcessing, record.Status)

	final = s.waitTerminal(f, "app-9")
	s.Equal(checklist.StatusReady, final.Status)
}

func (s *ServiceSuite) TestDeletedApplicationDiscardsResult() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-10"] = germanTouristProfile()

	release := make(chan struct{})
	f.enricher.setRespond(func(req enrichment.Request) ([]checklist.Item, []string, error) {
		<-release
		return enrichedItems(req, "flight_itinerary"), nil, nil
	})

	_, err := f.service.Get(s.ctx, "app-10")
	s.Require().NoError(err)

	s.Require().NoError(f.service.Delete(s.ctx, "app-10"))
	close(release)

	// The in-flight result must never resurrect the deleted record.
	time.Sleep(100 * time.Millisecond)
	_, err = f.checklists.Get(s.ctx, "app-10")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// lateDeleteStore drops the record at the last possible moment, immediately
// before the final persist, mimicking a deletion racing generation.
type lateDeleteStore struct {
	chstore.Store
	once sync.Once
}

func (s *lateDeleteStore) Update(ctx context.Context, record *checklist.DocumentChecklist) error {
	s.once.Do(func() { _ = s.Store.Delete(ctx, record.ApplicationID) })
	return s.Store.Update(ctx, record)
}

func (s *ServiceSuite) TestDeleteRacingFinalPersistDoesNotResurrect() {
	checklists := &lateDeleteStore{Store: chstore.NewInMemory()}
	rules := rulesstore.NewInMemory()
	_, err := rulesstore.SeedBootstrapRuleSet(rules)
	s.Require().NoError(err)

	profiles := &fakeProfiles{raws: map[string]profile.RawQuestionnaire{
		"app-16": germanTouristProfile(),
	}}
	enricher := &fakeEnricher{}
	enricher.setRespond(func(req enrichment.Request) ([]checklist.Item, []string, error) {
		return enrichedItems(req, "flight_itinerary"), nil, nil
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(
		checklists,
		rules,
		profiles,
		enricher,
		lock.NewInMemory(testConfig().LockTimeout),
		&capturePublisher{},
		nil,
		logger,
		testConfig(),
	)

	record, err := svc.Get(s.ctx, "app-16")
	s.Require().NoError(err)
	s.Equal(checklist.StatusProcessing, record.Status)

	// The conditional persist must observe the deletion and discard.
	s.Require().Eventually(func() bool {
		_, err := checklists.Store.Get(s.ctx, "app-16")
		return errors.Is(err, sentinel.ErrNotFound)
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	_, err = checklists.Store.Get(s.ctx, "app-16")
	s.ErrorIs(err, sentinel.ErrNotFound, "no late write may bring the record back")
}

func (s *ServiceSuite) TestEnrichmentTimeoutsExhaustedMarkFailed() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-17"] = germanTouristProfile()

	f.enricher.setRespond(func(enrichment.Request) ([]checklist.Item, []string, error) {
		return nil, nil, enrichment.NewTransientError(context.DeadlineExceeded)
	})

	_, err := f.service.Get(s.ctx, "app-17")
	s.Require().NoError(err)

	final := s.waitTerminal(f, "app-17")
	s.Equal(checklist.StatusFailed, final.Status)
	s.Equal(failedMessage, final.ErrorMessage)
	s.Empty(final.Items)
	s.False(final.AIGenerated)
	// Bounded backoff retries only; timeouts never earn the strict retry.
	s.Equal(testConfig().InfraRetries+1, f.enricher.callCount())
	s.Contains(f.publisher.actions(), audit.EventGenerationFailed)
}

func (s *ServiceSuite) TestTransientErrorsRetriedWithBackoff() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-11"] = germanTouristProfile()

	var mu sync.Mutex
	failures := 0
	f.enricher.setRespond(func(req enrichment.Request) ([]checklist.Item, []string, error) {
		mu.Lock()
		defer mu.Unlock()
		if failures < 2 {
			failures++
			return nil, nil, enrichment.NewTransientError(errors.New("upstream 503"))
		}
		return enrichedItems(req, "flight_itinerary"), nil, nil
	})

	_, err := f.service.Get(s.ctx, "app-11")
	s.Require().NoError(err)

	final := s.waitTerminal(f, "app-11")
	s.Equal(checklist.StatusReady, final.Status)
	s.Equal(3, f.enricher.callCount())
	s.False(f.enricher.call(2).Strict)
}

func (s *ServiceSuite) TestUnknownApplicationIsNotFound() {
	f := newFixture(s.T(), true)

	_, err := f.service.Get(s.ctx, "ghost")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDroppedCoreItemsAreSynthesized() {
	f := newFixture(s.T(), true)
	f.profiles.raws["app-12"] = germanTouristProfile()
	f.enricher.setRespond(func(req enrichment.Request) ([]checklist.Item, []string, error) {
		// The model ignores the base set entirely.
		return []checklist.Item{
			extraItem("flight_itinerary"),
			extraItem("hotel_booking"),
			extraItem("cover_letter"),
		}, nil, nil
	})

	_, err := f.service.Get(s.ctx, "app-12")
	s.Require().NoError(err)

	final := s.waitTerminal(f, "app-12")
	s.Equal(checklist.StatusReady, final.Status)

	ids := documentIDs(final.Items)
	s.Contains(ids, "passport")
	s.Contains(ids, "travel_insurance")
	s.Contains(ids, "business_registration")
}

func (s *ServiceSuite) TestEmptyApplicationIDRejected() {
	f := newFixture(s.T(), true)

	_, err := f.service.Get(s.ctx, "  ")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}
