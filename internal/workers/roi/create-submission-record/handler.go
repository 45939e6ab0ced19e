// internal/workers/roi/create-submission-record/handler.go
package createsubmissionrecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

const (
	TaskType = "create-submission-record"
)

var (
	ErrNotFound             = errors.New("SUBMISSION_NOT_FOUND")
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
	ErrDatabaseUpdateFailed = errors.New("DATABASE_UPDATE_FAILED")
	ErrDatabaseQueryFailed  = errors.New("DATABASE_QUERY_FAILED")
)

// Handler is the submission store. Contact details are sealed before they reach
// the database; only notification flags change after insert.
type Handler struct {
	config *Config
	db     *sql.DB
	cipher *FieldCipher
	psql   sq.StatementBuilderType
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, db *sql.DB, cipher *FieldCipher, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config: config,
		db:     db,
		cipher: cipher,
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSchema creates the table and indexes when missing.
func (h *Handler) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(h.config.Table) {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure schema: %v", ErrDatabaseQueryFailed, err)
		}
	}
	return nil
}

// Insert stores rec under a new id. ID, CreatedAt and UpdatedAt are set on rec;
// unset flags start as pending.
func (h *Handler) Insert(ctx context.Context, rec *models.SubmissionRecord) (string, error) {
	contact, err := json.Marshal(rec.Submission.ContactInfo)
	if err != nil {
		return "", fmt.Errorf("%w: marshal contact: %v", ErrDatabaseInsertFailed, err)
	}
	sealed, err := h.cipher.Seal(contact)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDatabaseInsertFailed, apperrors.NewEncryptionFailedError(err))
	}
	metrics, err := json.Marshal(rec.Submission.BusinessMetrics)
	if err != nil {
		return "", fmt.Errorf("%w: marshal metrics: %v", ErrDatabaseInsertFailed, err)
	}
	breakdown, err := json.Marshal(rec.Score)
	if err != nil {
		return "", fmt.Errorf("%w: marshal score: %v", ErrDatabaseInsertFailed, err)
	}
	projections, err := json.Marshal(rec.Projection)
	if err != nil {
		return "", fmt.Errorf("%w: marshal projections: %v", ErrDatabaseInsertFailed, err)
	}

	if rec.Flags.EmailStatus == "" {
		rec.Flags.EmailStatus = models.ChannelPending
	}
	if rec.Flags.CRMStatus == "" {
		rec.Flags.CRMStatus = models.ChannelPending
	}

	id := uuid.New().String()
	createdAt := h.now()

	query, args, err := h.psql.Insert(h.config.Table).
		Columns(
			colID, colContact, colEmailIndex, colMetrics, colMarketingConsent,
			colLeadScore, colTier, colScoreBreakdown, colProjections, colClientIP,
			colEmailStatus, colCRMStatus, colCRMContactID, colCRMDealID,
			colCreatedAt, colUpdatedAt,
		).
		Values(
			id, sealed, h.cipher.BlindIndex(rec.Submission.Email), metrics, rec.Submission.MarketingConsent,
			rec.Score.Total, string(rec.Score.Tier), breakdown, projections, rec.ClientIP,
			string(rec.Flags.EmailStatus), string(rec.Flags.CRMStatus), rec.Flags.CRMContactID, rec.Flags.CRMDealID,
			createdAt, createdAt,
		).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("%w: build insert: %v", ErrDatabaseInsertFailed, err)
	}

	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("%w: insert failed: %v", ErrDatabaseInsertFailed, err)
	}

	rec.ID = id
	rec.CreatedAt = createdAt
	rec.UpdatedAt = createdAt

	h.logger.Info("submission record created", map[string]interface{}{
		"submissionId": id,
		"email":        logger.MaskEmail(rec.Submission.Email),
		"leadScore":    rec.Score.Total,
		"tier":         rec.Score.Tier,
	})
	return id, nil
}

// UpdateFlags applies the non-nil fields of u. An empty update is a no-op.
// Channel statuses only move away from pending; a status that is already
// terminal is left as it is.
func (h *Handler) UpdateFlags(ctx context.Context, id string, u models.FlagUpdate) error {
	if u.Empty() {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	b := h.psql.Update(h.config.Table).Set(colUpdatedAt, h.now())
	if u.EmailStatus != nil {
		b = b.Set(colEmailStatus, whilePending(colEmailStatus, *u.EmailStatus))
	}
	if u.CRMStatus != nil {
		b = b.Set(colCRMStatus, whilePending(colCRMStatus, *u.CRMStatus))
	}
	if u.CRMContactID != nil {
		b = b.Set(colCRMContactID, *u.CRMContactID)
	}
	if u.CRMDealID != nil {
		b = b.Set(colCRMDealID, *u.CRMDealID)
	}

	query, args, err := b.Where(sq.Eq{colID: id}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: build update: %v", ErrDatabaseUpdateFailed, err)
	}

	res, err := h.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: update failed: %v", ErrDatabaseUpdateFailed, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func whilePending(col string, status models.ChannelStatus) sq.Sqlizer {
	return sq.Expr("CASE WHEN "+col+" = ? THEN ? ELSE "+col+" END", string(models.ChannelPending), string(status))
}

// Get returns ErrNotFound for unknown or malformed ids.
func (h *Handler) Get(ctx context.Context, id string) (*models.SubmissionRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	query, args, err := h.psql.Select(selectColumns...).
		From(h.config.Table).
		Where(sq.Eq{colID: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: build select: %v", ErrDatabaseQueryFailed, err)
	}

	rec, err := h.scanRecord(h.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByEmail returns every record for email, oldest first.
func (h *Handler) FindByEmail(ctx context.Context, email string) ([]*models.SubmissionRecord, error) {
	query, args, err := h.psql.Select(selectColumns...).
		From(h.config.Table).
		Where(sq.Eq{colEmailIndex: h.cipher.BlindIndex(email)}).
		OrderBy(colCreatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: build select: %v", ErrDatabaseQueryFailed, err)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseQueryFailed, err)
	}
	defer rows.Close()

	records := []*models.SubmissionRecord{}
	for rows.Next() {
		rec, err := h.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseQueryFailed, err)
	}
	return records, nil
}

func (h *Handler) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	return h.delete(ctx, sq.Eq{colEmailIndex: h.cipher.BlindIndex(email)})
}

// DeleteOlderThan removes records created before cutoff.
func (h *Handler) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := h.delete(ctx, sq.Lt{colCreatedAt: cutoff})
	if err != nil {
		return 0, err
	}
	h.logger.Info("retention sweep completed", map[string]interface{}{
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": n,
	})
	return n, nil
}

func (h *Handler) delete(ctx context.Context, where sq.Sqlizer) (int64, error) {
	query, args, err := h.psql.Delete(h.config.Table).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: build delete: %v", ErrDatabaseUpdateFailed, err)
	}
	res, err := h.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: delete failed: %v", ErrDatabaseUpdateFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseUpdateFailed, err)
	}
	return n, nil
}

// Ping is used by the readiness probe.
func (h *Handler) Ping(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return apperrors.NewDatabaseConnectionFailedError(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (h *Handler) scanRecord(row rowScanner) (*models.SubmissionRecord, error) {
	var (
		rec                                     models.SubmissionRecord
		sealed, metrics, breakdown, projections []byte
		emailStatus, crmStatus                  string
	)
	err := row.Scan(
		&rec.ID, &sealed, &metrics, &rec.Submission.MarketingConsent, &breakdown, &projections,
		&rec.ClientIP, &emailStatus, &crmStatus, &rec.Flags.CRMContactID, &rec.Flags.CRMDealID,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan: %v", ErrDatabaseQueryFailed, err)
	}

	contact, err := h.cipher.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: record %s: %v", ErrDatabaseQueryFailed, rec.ID, err)
	}
	if err := json.Unmarshal(contact, &rec.Submission.ContactInfo); err != nil {
		return nil, fmt.Errorf("%w: decode contact: %v", ErrDatabaseQueryFailed, err)
	}
	if err := json.Unmarshal(metrics, &rec.Submission.BusinessMetrics); err != nil {
		return nil, fmt.Errorf("%w: decode metrics: %v", ErrDatabaseQueryFailed, err)
	}
	if err := json.Unmarshal(breakdown, &rec.Score); err != nil {
		return nil, fmt.Errorf("%w: decode score: %v", ErrDatabaseQueryFailed, err)
	}
	if err := json.Unmarshal(projections, &rec.Projection); err != nil {
		return nil, fmt.Errorf("%w: decode projections: %v", ErrDatabaseQueryFailed, err)
	}

	rec.Flags.EmailStatus = models.ChannelStatus(emailStatus)
	rec.Flags.CRMStatus = models.ChannelStatus(crmStatus)
	return &rec, nil
}
