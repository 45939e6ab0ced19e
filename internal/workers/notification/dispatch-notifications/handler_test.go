// internal/workers/notification/dispatch-notifications/handler_test.go
package dispatchnotifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"
	emailsend "lead-capture/internal/workers/communication/email-send"
	crmleadsync "lead-capture/internal/workers/crm/crm-lead-sync"
)

// ==========================
// Fakes
// ==========================

type fakeStore struct {
	mu      sync.Mutex
	updates map[string][]models.FlagUpdate
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{updates: make(map[string][]models.FlagUpdate)}
}

func (s *fakeStore) UpdateFlags(ctx context.Context, id string, update models.FlagUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[id] = append(s.updates[id], update)
	return s.err
}

func (s *fakeStore) flags(id string) models.NotificationFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	flags := models.NotificationFlags{EmailStatus: models.ChannelPending, CRMStatus: models.ChannelPending}
	for _, u := range s.updates[id] {
		if u.EmailStatus != nil {
			flags.EmailStatus = *u.EmailStatus
		}
		if u.CRMStatus != nil {
			flags.CRMStatus = *u.CRMStatus
		}
		if u.CRMContactID != nil {
			flags.CRMContactID = *u.CRMContactID
		}
		if u.CRMDealID != nil {
			flags.CRMDealID = *u.CRMDealID
		}
	}
	return flags
}

type fakeEmailer struct {
	mu            sync.Mutex
	disabled      bool
	customerErrs  []error
	salesErr      error
	customerCalls int
	salesCalls    int
}

func (e *fakeEmailer) Enabled() bool { return !e.disabled }

func (e *fakeEmailer) SendCustomerConfirmation(ctx context.Context, job *models.NotificationJob) (*emailsend.Output, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.customerCalls++
	if len(e.customerErrs) >= e.customerCalls && e.customerErrs[e.customerCalls-1] != nil {
		return nil, e.customerErrs[e.customerCalls-1]
	}
	return &emailsend.Output{Success: true, MessageID: "m-1"}, nil
}

func (e *fakeEmailer) SendSalesNotification(ctx context.Context, job *models.NotificationJob) (*emailsend.Output, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.salesCalls++
	if e.salesErr != nil {
		return nil, e.salesErr
	}
	return &emailsend.Output{Success: true, MessageID: "m-2"}, nil
}

type fakeCRM struct {
	mu      sync.Mutex
	err     error
	dealErr error
	calls   int
}

func (c *fakeCRM) Enabled() bool { return true }

func (c *fakeCRM) Sync(ctx context.Context, job *models.NotificationJob) (*crmleadsync.Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if c.dealErr != nil {
		return &crmleadsync.Output{ContactID: "c-" + job.SubmissionID}, c.dealErr
	}
	return &crmleadsync.Output{ContactID: "c-" + job.SubmissionID, DealID: "d-" + job.SubmissionID}, nil
}

type fakeIndexer struct {
	mu   sync.Mutex
	err  error
	jobs []string
}

func (i *fakeIndexer) Enabled() bool { return true }

func (i *fakeIndexer) Index(ctx context.Context, job *models.NotificationJob) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.jobs = append(i.jobs, job.SubmissionID)
	return i.err
}

type fakeSNS struct {
	mu     sync.Mutex
	inputs []*sns.PublishInput
	err    error
}

func (s *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, params)
	if s.err != nil {
		return nil, s.err
	}
	return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
}

// ==========================
// Test Helpers
// ==========================

type fixture struct {
	store   *fakeStore
	email   *fakeEmailer
	crm     *fakeCRM
	indexer *fakeIndexer
	sns     *fakeSNS
	delays  []time.Duration
	handler *Handler
}

func newFixture(t *testing.T, mutate func(c *Config)) *fixture {
	t.Helper()
	cfg := LoadConfig()
	cfg.SalesAlertPhone = "+15550100"
	cfg.SMSSenderID = "ROICALC"
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	f := &fixture{
		store:   newFakeStore(),
		email:   &fakeEmailer{},
		crm:     &fakeCRM{},
		indexer: &fakeIndexer{},
		sns:     &fakeSNS{},
	}
	f.handler = NewHandler(cfg, Dependencies{
		Logger:  logger.NewTestLogger(t),
		Store:   f.store,
		Email:   f.email,
		CRM:     f.crm,
		Indexer: f.indexer,
		SNS:     f.sns,
	})
	var mu sync.Mutex
	f.handler.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		f.delays = append(f.delays, d)
		return ctx.Err()
	}
	return f
}

func createTestJob(id string, tier models.Tier) *models.NotificationJob {
	return &models.NotificationJob{
		SubmissionID: id,
		Submission: models.CleanSubmission{
			BusinessMetrics: models.BusinessMetrics{
				MonthlyRevenue: 250000,
				Industry:       models.IndustryHealth,
				BusinessStage:  models.StageMature,
			},
			ContactInfo: models.ContactInfo{
				FirstName:    "Sam",
				LastName:     "Lee",
				Email:        "sam@vital.example",
				BusinessName: "Vital Goods",
			},
		},
		Score:     models.ScoreBreakdown{Total: 120, Tier: tier},
		CreatedAt: "2025-03-10T09:00:00Z",
	}
}

func transient(msg string) error {
	return apperrors.NewEmailSendFailedError(errors.New(msg), true)
}

// ==========================
// Dispatch
// ==========================

func TestDispatch_AllChannelsSucceed(t *testing.T) {
	f := newFixture(t, nil)

	result := f.handler.Dispatch(context.Background(), createTestJob("s1", models.TierHot))

	assert.Equal(t, models.ChannelSent, result.Email)
	assert.Equal(t, models.ChannelSent, result.CRM)
	assert.Equal(t, "c-s1", result.CRMContactID)
	assert.Equal(t, "d-s1", result.CRMDealID)
	assert.True(t, result.SalesEmailed)
	assert.True(t, result.SMSSent)
	assert.True(t, result.Indexed)

	flags := f.store.flags("s1")
	assert.True(t, flags.EmailSent())
	assert.True(t, flags.CRMSynced())
	assert.Equal(t, "c-s1", flags.CRMContactID)
	assert.Equal(t, "d-s1", flags.CRMDealID)
	assert.Len(t, f.store.updates["s1"], 2)
	assert.Empty(t, f.delays)
}

func TestDispatch_DealFailureKeepsContactID(t *testing.T) {
	f := newFixture(t, nil)
	f.crm.dealErr = apperrors.NewCRMSyncFailedError("deal create", errors.New("pipeline not found"), false)

	result := f.handler.Dispatch(context.Background(), createTestJob("s1", models.TierWarm))

	assert.Equal(t, models.ChannelFailed, result.CRM)
	assert.Equal(t, "c-s1", result.CRMContactID)
	assert.Empty(t, result.CRMDealID)
	assert.Equal(t, 1, f.crm.calls)

	flags := f.store.flags("s1")
	assert.Equal(t, models.ChannelFailed, flags.CRMStatus)
	assert.Equal(t, "c-s1", flags.CRMContactID)
	assert.Empty(t, flags.CRMDealID)
}

func TestDispatch_EmailRetries(t *testing.T) {
	tests := []struct {
		name           string
		errs           []error
		wantStatus     models.ChannelStatus
		wantCalls      int
		validateDelays func(t *testing.T, delays []time.Duration)
	}{
		{
			name:       "succeeds on third attempt with linear delay",
			errs:       []error{transient("timeout"), transient("timeout")},
			wantStatus: models.ChannelSent,
			wantCalls:  3,
			validateDelays: func(t *testing.T, delays []time.Duration) {
				assert.Equal(t, []time.Duration{60 * time.Second, 120 * time.Second}, delays)
			},
		},
		{
			name:       "exhausts attempts",
			errs:       []error{transient("a"), transient("b"), transient("c")},
			wantStatus: models.ChannelFailed,
			wantCalls:  3,
			validateDelays: func(t *testing.T, delays []time.Duration) {
				assert.Len(t, delays, 2)
			},
		},
		{
			name:       "permanent error stops immediately",
			errs:       []error{apperrors.NewEmailSendFailedError(errors.New("rejected"), false)},
			wantStatus: models.ChannelFailed,
			wantCalls:  1,
			validateDelays: func(t *testing.T, delays []time.Duration) {
				assert.Empty(t, delays)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(c *Config) { c.CRMEnabled = false })
			f.email.customerErrs = tt.errs

			result := f.handler.Dispatch(context.Background(), createTestJob("s2", models.TierWarm))

			assert.Equal(t, tt.wantStatus, result.Email)
			assert.Equal(t, tt.wantCalls, f.email.customerCalls)
			assert.Equal(t, tt.wantStatus, f.store.flags("s2").EmailStatus)
			tt.validateDelays(t, f.delays)
		})
	}
}

func TestDispatch_CRMFailureDoesNotAffectEmail(t *testing.T) {
	f := newFixture(t, nil)
	f.crm.err = apperrors.NewCRMSyncFailedError("contact create", errors.New("400"), false)

	result := f.handler.Dispatch(context.Background(), createTestJob("s3", models.TierCold))

	assert.Equal(t, models.ChannelSent, result.Email)
	assert.Equal(t, models.ChannelFailed, result.CRM)
	flags := f.store.flags("s3")
	assert.Equal(t, models.ChannelFailed, flags.CRMStatus)
	assert.Empty(t, flags.CRMContactID)
	assert.Equal(t, 1, f.crm.calls)
}

func TestDispatch_DisabledChannels(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.CRMEnabled = false
		c.IndexEnabled = false
		c.SMSEnabled = false
	})
	f.email.disabled = true

	result := f.handler.Dispatch(context.Background(), createTestJob("s4", models.TierHot))

	assert.Equal(t, models.ChannelDisabled, result.Email)
	assert.Equal(t, models.ChannelDisabled, result.CRM)
	assert.False(t, result.SMSSent)
	assert.False(t, result.Indexed)
	assert.Zero(t, f.email.customerCalls)
	assert.Zero(t, f.crm.calls)
	assert.Empty(t, f.sns.inputs)
	assert.Empty(t, f.indexer.jobs)

	flags := f.store.flags("s4")
	assert.Equal(t, models.ChannelDisabled, flags.EmailStatus)
	assert.Equal(t, models.ChannelDisabled, flags.CRMStatus)
	assert.True(t, flags.EmailStatus.Terminal())
}

func TestDispatch_MissingSalesRecipientsIsNotRetried(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.CRMEnabled = false })
	f.email.salesErr = apperrors.NewEmailSendFailedError(emailsend.ErrNoSalesRecipients, false)

	result := f.handler.Dispatch(context.Background(), createTestJob("s5", models.TierWarm))

	assert.Equal(t, models.ChannelSent, result.Email)
	assert.False(t, result.SalesEmailed)
	assert.Equal(t, 1, f.email.salesCalls)
	assert.Empty(t, f.delays)
}

func TestDispatch_StoreErrorIsSwallowed(t *testing.T) {
	f := newFixture(t, nil)
	f.store.err = errors.New("connection reset")

	result := f.handler.Dispatch(context.Background(), createTestJob("s6", models.TierCold))
	assert.Equal(t, models.ChannelSent, result.Email)
	assert.Equal(t, models.ChannelSent, result.CRM)
}

func TestDispatch_IndexFailureIsBestEffort(t *testing.T) {
	f := newFixture(t, nil)
	f.indexer.err = apperrors.NewSearchIndexFailedError(errors.New("cluster red"))

	result := f.handler.Dispatch(context.Background(), createTestJob("s7", models.TierCold))
	assert.False(t, result.Indexed)
	assert.Len(t, f.indexer.jobs, 3)
	assert.Equal(t, models.ChannelSent, result.Email)
}

// ==========================
// Sales SMS alert
// ==========================

func TestDispatch_SalesAlertOnlyForHotLeads(t *testing.T) {
	tests := []struct {
		tier     models.Tier
		wantSent bool
	}{
		{tier: models.TierHot, wantSent: true},
		{tier: models.TierWarm, wantSent: false},
		{tier: models.TierCold, wantSent: false},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			f := newFixture(t, nil)
			result := f.handler.Dispatch(context.Background(), createTestJob("s8", tt.tier))
			assert.Equal(t, tt.wantSent, result.SMSSent)
			if tt.wantSent {
				assert.Len(t, f.sns.inputs, 1)
			} else {
				assert.Empty(t, f.sns.inputs)
			}
		})
	}
}

func TestDispatch_SalesAlertMessage(t *testing.T) {
	f := newFixture(t, nil)
	f.handler.Dispatch(context.Background(), createTestJob("s9", models.TierHot))

	require.Len(t, f.sns.inputs, 1)
	in := f.sns.inputs[0]
	assert.Equal(t, "+15550100", aws.ToString(in.PhoneNumber))
	assert.Equal(t, "HOT lead 120/150: Vital Goods (Health & Wellness, Mature). Revenue $250000/mo. Call within 1h.", aws.ToString(in.Message))
	assert.Equal(t, "Transactional", aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
	assert.Equal(t, "ROICALC", aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestDispatch_SalesAlertWithoutPhone(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.SalesAlertPhone = "" })
	result := f.handler.Dispatch(context.Background(), createTestJob("s10", models.TierHot))
	assert.False(t, result.SMSSent)
	assert.Empty(t, f.sns.inputs)
}

func TestDispatch_SalesAlertFailureRetried(t *testing.T) {
	f := newFixture(t, nil)
	f.sns.err = errors.New("throttled")

	result := f.handler.Dispatch(context.Background(), createTestJob("s11", models.TierHot))
	assert.False(t, result.SMSSent)
	assert.Len(t, f.sns.inputs, 3)
	assert.Equal(t, models.ChannelSent, result.Email)
}

// ==========================
// Queues
// ==========================

func TestChannelQueue_DeliversEveryJob(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Workers = 3 })
	q := NewChannelQueue(f.handler)
	q.Start(context.Background())

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(createTestJob(fmt.Sprintf("q%d", i), models.TierCold)))
	}
	q.Close()

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("q%d", i)
		assert.True(t, f.store.flags(id).EmailSent(), id)
		assert.True(t, f.store.flags(id).CRMSynced(), id)
	}
	assert.ErrorIs(t, q.Enqueue(createTestJob("late", models.TierCold)), ErrQueueClosed)
}

func TestChannelQueue_FullQueueAbandonsJob(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.QueueSize = 1 })
	q := NewChannelQueue(f.handler)

	require.NoError(t, q.Enqueue(createTestJob("first", models.TierCold)))
	err := q.Enqueue(createTestJob("second", models.TierCold))
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotificationDropped, stdErr.Code)

	flags := f.store.flags("second")
	assert.Equal(t, models.ChannelFailed, flags.EmailStatus)
	assert.Equal(t, models.ChannelFailed, flags.CRMStatus)
	assert.Equal(t, 1, q.Len())

	q.Start(context.Background())
	q.Close()
	assert.True(t, f.store.flags("first").EmailSent())
}

func TestChannelQueue_CancelledContextStillRecordsFlags(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Workers = 1 })
	f.email.customerErrs = []error{transient("slow")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := NewChannelQueue(f.handler)
	q.Start(ctx)
	require.NoError(t, q.Enqueue(createTestJob("c1", models.TierCold)))
	q.Close()

	assert.Equal(t, models.ChannelFailed, f.store.flags("c1").EmailStatus)
}

func TestSyncQueue(t *testing.T) {
	f := newFixture(t, nil)
	q := NewSyncQueue(f.handler)

	require.NoError(t, q.Enqueue(createTestJob("sync", models.TierWarm)))
	result, ok := q.Result("sync")
	require.True(t, ok)
	assert.Equal(t, models.ChannelSent, result.Email)

	_, ok = q.Result("unknown")
	assert.False(t, ok)
}

func TestConfig_Validate(t *testing.T) {
	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	cfg.Workers = 0
	assert.EqualError(t, cfg.Validate(), "workers must be positive")

	cfg = LoadConfig()
	cfg.AttemptTimeout = 0
	assert.EqualError(t, cfg.Validate(), "attempt_timeout must be positive")
}
