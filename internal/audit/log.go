package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/buildsafe/backend/internal/storage/models"
	"github.com/buildsafe/backend/pkg/logger"
	"github.com/buildsafe/backend/pkg/retry"
)

var ErrNotFound = errors.New("audit record not found")

type store interface {
	InsertAuditRecord(ctx context.Context, record *models.AuditRecord) error
	UpdateAuditDecision(ctx context.Context, id string, decision models.Decision, decidedAt time.Time) (bool, error)
	GetAuditRecord(ctx context.Context, id string) (*models.AuditRecord, error)
	ListAuditRecords(ctx context.Context, limit int) ([]models.AuditRecord, error)
	DecisionCounts(ctx context.Context) (map[models.Decision]int, error)
}

// Log is the compliance trail for suggestions. Every suggestion is persisted
// before its response is returned; records are never deleted.
type Log struct {
	db       store
	retryCfg retry.Config
}

func NewLog(db store) *Log {
	cfg := retry.DefaultConfig()
	cfg.Logger = logger.GetLogger()

	return &Log{db: db, retryCfg: cfg}
}

// Create persists a pending audit record capturing the full request and
// response, and returns its identifier. The insert is retried on transient
// failure because an unrecorded suggestion is not acceptable.
func (l *Log) Create(ctx context.Context, req models.SuggestionRequest, resp models.SuggestionResponse) (string, error) {
	reqSnapshot, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request snapshot: %w", err)
	}

	respSnapshot, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal response snapshot: %w", err)
	}

	record := &models.AuditRecord{
		ID:               uuid.New().String(),
		RequestSnapshot:  string(reqSnapshot),
		ResponseSnapshot: string(respSnapshot),
		Decision:         models.DecisionPending,
		CreatedAt:        time.Now(),
	}

	err = retry.Do(ctx, l.retryCfg, func() error {
		return l.db.InsertAuditRecord(ctx, record)
	})
	if err != nil {
		return "", fmt.Errorf("failed to create audit record: %w", err)
	}

	return record.ID, nil
}

// Decide records the reviewer's verdict. Idempotent to last write: calling
// again overwrites decision and decidedAt, no error on repeat calls.
func (l *Log) Decide(ctx context.Context, id string, accepted bool) error {
	decision := models.DecisionRejected
	if accepted {
		decision = models.DecisionAccepted
	}

	found, err := l.db.UpdateAuditDecision(ctx, id, decision, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	if !found {
		return ErrNotFound
	}

	logger.Info("Suggestion decision recorded",
		zap.String("audit_id", id),
		zap.String("decision", string(decision)),
	)

	return nil
}

func (l *Log) Get(ctx context.Context, id string) (*models.AuditRecord, error) {
	record, err := l.db.GetAuditRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

func (l *Log) List(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return l.db.ListAuditRecords(ctx, limit)
}

// AcceptRate returns the fraction of decided suggestions that were accepted,
// and the number decided. Pending records are excluded. Feeds threshold
// tuning and the accept-rate gauge.
func (l *Log) AcceptRate(ctx context.Context) (float64, int, error) {
	counts, err := l.db.DecisionCounts(ctx)
	if err != nil {
		return 0, 0, err
	}

	accepted := counts[models.DecisionAccepted]
	decided := accepted + counts[models.DecisionRejected]
	if decided == 0 {
		return 0, 0, nil
	}

	return float64(accepted) / float64(decided), decided, nil
}
