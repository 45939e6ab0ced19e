package crmleadsync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/hubspot"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fake HubSpot
// ==========================

type recordedCall struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

type fakeHubSpot struct {
	mu       sync.Mutex
	calls    []recordedCall
	existing string
	failures map[string]int
}

func newFakeHubSpot(t *testing.T) (*fakeHubSpot, *httptest.Server) {
	f := &fakeHubSpot{failures: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeHubSpot) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]interface{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Method: r.Method, Path: r.URL.Path, Body: body})
	status, fail := f.failures[r.Method+" "+r.URL.Path]
	existing := f.existing
	f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if fail {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":"error","message":"boom"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/crm/v3/objects/contacts/search":
		if existing == "" {
			_, _ = w.Write([]byte(`{"total":0,"results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"total":1,"results":[{"id":"` + existing + `","properties":{"email":"jane@shop.example"}}]}`))
	case r.Method == http.MethodPost && r.URL.Path == "/crm/v3/objects/contacts":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"c-1","properties":{}}`))
	case r.Method == http.MethodPatch:
		_, _ = w.Write([]byte(`{"id":"` + existing + `","properties":{}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/crm/v3/objects/deals":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"d-1","properties":{}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/crm/v3/objects/tasks":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"t-1","properties":{}}`))
	case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/associations/"):
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeHubSpot) find(method, path string) *recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.calls {
		if f.calls[i].Method == method && f.calls[i].Path == path {
			return &f.calls[i]
		}
	}
	return nil
}

func properties(t *testing.T, call *recordedCall) map[string]interface{} {
	t.Helper()
	require.NotNil(t, call)
	props, ok := call.Body["properties"].(map[string]interface{})
	require.True(t, ok, "request body has no properties")
	return props
}

// ==========================
// Test Helpers
// ==========================

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, srv *httptest.Server) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AccessToken = "test-token"
	cfg.BaseURL = srv.URL
	cfg.Timeout = 5 * time.Second

	client := hubspot.NewCRMClient(hubspot.Options{
		BaseURL:     cfg.BaseURL,
		AccessToken: cfg.AccessToken,
		Timeout:     cfg.Timeout,
	})
	svc, err := NewService(ServiceDependencies{Logger: logger.NewTestLogger(t), Client: client}, cfg)
	require.NoError(t, err)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func createTestJob(tier models.Tier) *models.NotificationJob {
	return &models.NotificationJob{
		SubmissionID: "5f0c6f7e-52c4-4b4e-9a53-0d7ad2b1c0de",
		Submission: models.CleanSubmission{
			BusinessMetrics: models.BusinessMetrics{
				MonthlyRevenue: 50000,
				Industry:       models.IndustryElectronic,
				BusinessStage:  models.StageEstablished,
			},
			ContactInfo: models.ContactInfo{
				FirstName:    "Jane",
				LastName:     "Doe",
				Email:        "jane@shop.example",
				BusinessName: "Jane's Gadgets",
				Website:      "https://shop.example",
			},
		},
		Score: models.ScoreBreakdown{Total: 95, Tier: tier},
		Projection: models.Projection{
			Expected: models.Scenario{MonthlyRevenue: 65000, MonthlyIncrease: 15000, AnnualBenefit: 180000},
		},
	}
}

// ==========================
// Config
// ==========================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout must be positive"},
		{name: "no pipeline", mutate: func(c *Config) { c.Pipeline = "" }, wantErr: "pipeline is required"},
		{name: "no deal stage", mutate: func(c *Config) { c.DealStage = "" }, wantErr: "deal_stage is required"},
		{name: "share above one", mutate: func(c *Config) { c.DealShare = 1.5 }, wantErr: "deal_share"},
		{name: "no close window", mutate: func(c *Config) { c.CloseWithin = 0 }, wantErr: "close_within must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewService_DisabledWithoutToken(t *testing.T) {
	svc, err := NewService(ServiceDependencies{Logger: logger.NewTestLogger(t)}, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, svc.Enabled())

	_, err = svc.Sync(context.Background(), createTestJob(models.TierHot))
	assert.ErrorIs(t, err, ErrCRMDisabled)
}

func TestNewService_BuildsClientFromToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AccessToken = "token"
	svc, err := NewService(ServiceDependencies{Logger: logger.NewTestLogger(t)}, cfg)
	require.NoError(t, err)
	assert.True(t, svc.Enabled())
}

// ==========================
// Sync
// ==========================

func TestSync_CreatesContactDealAndTask(t *testing.T) {
	hub, srv := newFakeHubSpot(t)
	svc := newTestService(t, srv)

	out, err := svc.Sync(context.Background(), createTestJob(models.TierHot))
	require.NoError(t, err)
	assert.Equal(t, "c-1", out.ContactID)
	assert.Equal(t, "d-1", out.DealID)
	assert.Equal(t, "t-1", out.TaskID)
	assert.True(t, out.ContactCreated)
	assert.Equal(t, fixedNow, out.SyncedAt)

	contact := properties(t, hub.find(http.MethodPost, "/crm/v3/objects/contacts"))
	assert.Equal(t, "jane@shop.example", contact["email"])
	assert.Equal(t, "Jane", contact["firstname"])
	assert.Equal(t, "Doe", contact["lastname"])
	assert.Equal(t, "Jane's Gadgets", contact["company"])
	assert.Equal(t, "https://shop.example", contact["website"])
	assert.Equal(t, "Electronics", contact["industry"])
	assert.Equal(t, "established", contact["business_stage"])
	assert.Equal(t, "50000", contact["monthly_revenue"])
	assert.Equal(t, "95", contact["roi_calculator_score"])
	assert.Equal(t, "Hot", contact["roi_calculator_tier"])
	assert.Equal(t, "salesqualifiedlead", contact["lifecyclestage"])
	assert.Equal(t, "NEW", contact["hs_lead_status"])
	assert.NotContains(t, contact, "phone")
	assert.NotContains(t, contact, "hs_legal_basis")

	deal := properties(t, hub.find(http.MethodPost, "/crm/v3/objects/deals"))
	assert.Equal(t, "Jane's Gadgets - ROI Automation", deal["dealname"])
	assert.Equal(t, "54000.00", deal["amount"])
	assert.Equal(t, "default", deal["pipeline"])
	assert.Equal(t, "appointmentscheduled", deal["dealstage"])
	assert.Equal(t, "2025-06-08", deal["closedate"])

	task := properties(t, hub.find(http.MethodPost, "/crm/v3/objects/tasks"))
	assert.Equal(t, "HIGH", task["hs_task_priority"])
	assert.Equal(t, "CALL", task["hs_task_type"])
	assert.Equal(t, "NOT_STARTED", task["hs_task_status"])
	assert.Equal(t, "1741600800000", task["hs_timestamp"])

	assert.NotNil(t, hub.find(http.MethodPut, "/crm/v3/objects/deals/d-1/associations/contacts/c-1/3"))
	assert.NotNil(t, hub.find(http.MethodPut, "/crm/v3/objects/tasks/t-1/associations/contacts/c-1/204"))
	assert.NotNil(t, hub.find(http.MethodPut, "/crm/v3/objects/tasks/t-1/associations/deals/d-1/216"))
}

func TestSync_UpdatesExistingContact(t *testing.T) {
	hub, srv := newFakeHubSpot(t)
	hub.existing = "c-9"
	svc := newTestService(t, srv)

	job := createTestJob(models.TierWarm)
	job.Submission.MarketingConsent = true
	job.Submission.Phone = "+1 555 010 9999"

	out, err := svc.Sync(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "c-9", out.ContactID)
	assert.False(t, out.ContactCreated)
	assert.Nil(t, hub.find(http.MethodPost, "/crm/v3/objects/contacts"))

	contact := properties(t, hub.find(http.MethodPatch, "/crm/v3/objects/contacts/c-9"))
	assert.Equal(t, "marketingqualifiedlead", contact["lifecyclestage"])
	assert.Equal(t, "OPEN", contact["hs_lead_status"])
	assert.Equal(t, "+1 555 010 9999", contact["phone"])
	assert.Equal(t, legalBasisConsent, contact["hs_legal_basis"])

	task := properties(t, hub.find(http.MethodPost, "/crm/v3/objects/tasks"))
	assert.Equal(t, "MEDIUM", task["hs_task_priority"])
	assert.Equal(t, "1741683600000", task["hs_timestamp"])
}

func TestSync_Failures(t *testing.T) {
	tests := []struct {
		name          string
		failPath      string
		status        int
		wantErr       bool
		wantRetryable bool
		validate      func(t *testing.T, out *Output)
	}{
		{
			name:          "search rate limited",
			failPath:      "POST /crm/v3/objects/contacts/search",
			status:        http.StatusTooManyRequests,
			wantErr:       true,
			wantRetryable: true,
		},
		{
			name:          "contact rejected",
			failPath:      "POST /crm/v3/objects/contacts",
			status:        http.StatusBadRequest,
			wantErr:       true,
			wantRetryable: false,
		},
		{
			name:          "deal server error keeps contact",
			failPath:      "POST /crm/v3/objects/deals",
			status:        http.StatusBadGateway,
			wantErr:       true,
			wantRetryable: true,
			validate: func(t *testing.T, out *Output) {
				require.NotNil(t, out)
				assert.Equal(t, "c-1", out.ContactID)
				assert.True(t, out.ContactCreated)
				assert.Empty(t, out.DealID)
			},
		},
		{
			name:     "task failure does not fail sync",
			failPath: "POST /crm/v3/objects/tasks",
			status:   http.StatusInternalServerError,
			validate: func(t *testing.T, out *Output) {
				assert.Equal(t, "d-1", out.DealID)
				assert.Empty(t, out.TaskID)
			},
		},
		{
			name:     "deal association failure does not fail sync",
			failPath: "PUT /crm/v3/objects/deals/d-1/associations/contacts/c-1/3",
			status:   http.StatusInternalServerError,
			validate: func(t *testing.T, out *Output) {
				assert.Equal(t, "c-1", out.ContactID)
				assert.Equal(t, "t-1", out.TaskID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, srv := newFakeHubSpot(t)
			hub.failures[tt.failPath] = tt.status
			svc := newTestService(t, srv)

			out, err := svc.Sync(context.Background(), createTestJob(models.TierCold))
			if !tt.wantErr {
				require.NoError(t, err)
				tt.validate(t, out)
				return
			}

			require.Error(t, err)
			stdErr, ok := apperrors.AsStandard(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeCRMSyncFailed, stdErr.Code)
			assert.Equal(t, tt.wantRetryable, apperrors.IsRetryable(err))
			if tt.validate != nil {
				tt.validate(t, out)
			}
		})
	}
}

func TestSync_UnauthorizedIsPermanent(t *testing.T) {
	_, srv := newFakeHubSpot(t)
	cfg := DefaultConfig()
	cfg.AccessToken = "wrong"
	cfg.BaseURL = srv.URL
	svc, err := NewService(ServiceDependencies{Logger: logger.NewTestLogger(t)}, cfg)
	require.NoError(t, err)

	_, err = svc.Sync(context.Background(), createTestJob(models.TierHot))
	require.Error(t, err)
	assert.False(t, apperrors.IsRetryable(err))
}

// ==========================
// Helpers
// ==========================

func TestStageValue(t *testing.T) {
	assert.Equal(t, "startup", stageValue(models.StageStartup))
	assert.Equal(t, "growing", stageValue(models.StageGrowth))
	assert.Equal(t, "established", stageValue(models.StageEstablished))
	assert.Equal(t, "enterprise", stageValue(models.StageMature))
	assert.Equal(t, "growing", stageValue(""))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(io.ErrUnexpectedEOF))
	assert.False(t, isRetryable(context.Canceled))
}
