package indexlead

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"
)

const (
	TaskType = "index-lead"
)

var (
	ErrIndexRequestFailed = errors.New("INDEX_REQUEST_FAILED")
	ErrIndexRejected      = errors.New("INDEX_REJECTED")
)

type Handler struct {
	config *Config
	client *elasticsearch.Client
	logger logger.Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Handler{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Enabled() bool {
	return h.client != nil
}

// EnsureIndex creates the lead index with its mapping when it does not exist.
func (h *Handler) EnsureIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{h.config.Index}}.Do(ctx, h.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexRequestFailed, err)
	}
	drain(res)
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: index exists check returned %s", ErrIndexRejected, res.Status())
	}

	res, err = esapi.IndicesCreateRequest{
		Index: h.config.Index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, h.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexRequestFailed, err)
	}
	defer drain(res)

	// A concurrent creator wins with resource_already_exists_exception.
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("%w: create index returned %s", ErrIndexRejected, res.Status())
	}

	h.logger.Info("Lead index ready", map[string]interface{}{"index": h.config.Index})
	return nil
}

// Index writes the analytics document for job, keyed by submission id so a
// retry overwrites rather than duplicates.
func (h *Handler) Index(ctx context.Context, job *models.NotificationJob) error {
	doc := DocumentFor(job)
	body, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewSearchIndexFailedError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	res, err := esapi.IndexRequest{
		Index:      h.config.Index,
		DocumentID: doc.SubmissionID,
		Body:       bytes.NewReader(body),
		Refresh:    h.config.Refresh,
	}.Do(ctx, h.client)
	if err != nil {
		return apperrors.NewSearchIndexFailedError(fmt.Errorf("%w: %v", ErrIndexRequestFailed, err))
	}
	defer drain(res)

	if res.IsError() {
		stdErr := apperrors.NewSearchIndexFailedError(fmt.Errorf("%w: %s", ErrIndexRejected, res.Status()))
		stdErr.Retryable = apperrors.IsRetryableHTTPStatus(res.StatusCode)
		return stdErr
	}

	h.logger.Debug("Lead indexed", map[string]interface{}{
		"submissionId": doc.SubmissionID,
		"tier":         string(doc.Tier),
	})
	return nil
}

func DocumentFor(job *models.NotificationJob) Document {
	sub := job.Submission
	challenges := sub.Challenges
	if challenges == nil {
		challenges = []models.Challenge{}
	}
	return Document{
		SubmissionID:     job.SubmissionID,
		Industry:         sub.Industry,
		BusinessStage:    sub.BusinessStage,
		MonthlyRevenue:   sub.MonthlyRevenue,
		MonthlyOrders:    sub.MonthlyOrders,
		LeadScore:        job.Score.Total,
		Tier:             job.Score.Tier,
		Demographic:      job.Score.Demographic,
		Behavioral:       job.Score.Behavioral,
		Fit:              job.Score.Fit,
		Challenges:       challenges,
		MarketingConsent: sub.MarketingConsent,
		CreatedAt:        job.CreatedAt,
	}
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
