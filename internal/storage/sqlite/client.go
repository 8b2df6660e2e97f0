package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/buildsafe/backend/internal/storage/models"
	"github.com/buildsafe/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS library_entries (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		keywords TEXT,
		category TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		default_likelihood INTEGER,
		default_severity INTEGER,
		hierarchy_tier INTEGER,
		likelihood_reduction INTEGER,
		severity_reduction INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (tenant_id, kind, code)
	);
	CREATE INDEX IF NOT EXISTS idx_library_kind ON library_entries(kind);
	CREATE INDEX IF NOT EXISTS idx_library_tenant_kind ON library_entries(tenant_id, kind);
	CREATE INDEX IF NOT EXISTS idx_library_category ON library_entries(kind, category);

	CREATE TABLE IF NOT EXISTS suggestion_audit (
		id TEXT PRIMARY KEY,
		request_snapshot TEXT NOT NULL,
		response_snapshot TEXT NOT NULL,
		decision TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL,
		decided_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON suggestion_audit(created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_decision ON suggestion_audit(decision);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertLibraryEntry(ctx context.Context, tenantID string, entry *models.LibraryEntry) error {
	keywordsJSON, _ := json.Marshal(entry.Keywords)

	query := `
		INSERT INTO library_entries (id, tenant_id, kind, code, name, description, keywords, category,
			sort_order, is_active, default_likelihood, default_severity, hierarchy_tier,
			likelihood_reduction, severity_reduction, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, kind, code) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			keywords = excluded.keywords,
			category = excluded.category,
			sort_order = excluded.sort_order,
			is_active = excluded.is_active,
			default_likelihood = excluded.default_likelihood,
			default_severity = excluded.default_severity,
			hierarchy_tier = excluded.hierarchy_tier,
			likelihood_reduction = excluded.likelihood_reduction,
			severity_reduction = excluded.severity_reduction,
			updated_at = excluded.updated_at
	`

	isActive := 0
	if entry.IsActive {
		isActive = 1
	}

	_, err := c.db.ExecContext(ctx, query,
		entry.ID,
		tenantID,
		string(entry.Kind),
		entry.Code,
		entry.Name,
		entry.Description,
		string(keywordsJSON),
		entry.Category,
		entry.SortOrder,
		isActive,
		entry.DefaultLikelihood,
		entry.DefaultSeverity,
		int(entry.HierarchyTier),
		entry.LikelihoodReduction,
		entry.SeverityReduction,
		entry.CreatedAt.Unix(),
		entry.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert library entry: %w", err)
	}

	return nil
}

func (c *Client) GetActiveEntries(ctx context.Context, kind models.LibraryKind, tenantID string) ([]models.LibraryEntry, error) {
	query := `
		SELECT id, kind, code, name, description, keywords, category, sort_order, is_active,
			default_likelihood, default_severity, hierarchy_tier, likelihood_reduction,
			severity_reduction, created_at, updated_at
		FROM library_entries
		WHERE kind = ? AND tenant_id = ? AND is_active = 1
		ORDER BY sort_order ASC, code ASC
	`

	rows, err := c.db.QueryContext(ctx, query, string(kind), tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (c *Client) GetEntriesByCategory(ctx context.Context, kind models.LibraryKind, category string) ([]models.LibraryEntry, error) {
	// Category '' is the applies-to-all sentinel, so those rows always qualify.
	query := `
		SELECT id, kind, code, name, description, keywords, category, sort_order, is_active,
			default_likelihood, default_severity, hierarchy_tier, likelihood_reduction,
			severity_reduction, created_at, updated_at
		FROM library_entries
		WHERE kind = ? AND is_active = 1 AND (category = ? OR category = '')
		ORDER BY sort_order ASC, code ASC
	`

	rows, err := c.db.QueryContext(ctx, query, string(kind), category)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries by category: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.LibraryEntry, error) {
	var entries []models.LibraryEntry
	for rows.Next() {
		var e models.LibraryEntry
		var kind, keywordsJSON string
		var isActive, tier int
		var createdAt, updatedAt int64

		err := rows.Scan(&e.ID, &kind, &e.Code, &e.Name, &e.Description, &keywordsJSON,
			&e.Category, &e.SortOrder, &isActive, &e.DefaultLikelihood, &e.DefaultSeverity,
			&tier, &e.LikelihoodReduction, &e.SeverityReduction, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		e.Kind = models.LibraryKind(kind)
		e.IsActive = isActive == 1
		e.HierarchyTier = models.HierarchyTier(tier)
		e.CreatedAt = time.Unix(createdAt, 0)
		e.UpdatedAt = time.Unix(updatedAt, 0)
		json.Unmarshal([]byte(keywordsJSON), &e.Keywords)

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return entries, nil
}

func (c *Client) InsertAuditRecord(ctx context.Context, record *models.AuditRecord) error {
	query := `
		INSERT INTO suggestion_audit (id, request_snapshot, response_snapshot, decision, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(ctx, query,
		record.ID,
		record.RequestSnapshot,
		record.ResponseSnapshot,
		string(record.Decision),
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	logger.Info("Audit record created", zap.String("audit_id", record.ID))
	return nil
}

// UpdateAuditDecision overwrites decision and decided_at; last write wins.
func (c *Client) UpdateAuditDecision(ctx context.Context, id string, decision models.Decision, decidedAt time.Time) (bool, error) {
	query := `UPDATE suggestion_audit SET decision = ?, decided_at = ? WHERE id = ?`

	result, err := c.db.ExecContext(ctx, query, string(decision), decidedAt.Unix(), id)
	if err != nil {
		return false, fmt.Errorf("failed to update audit decision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

func (c *Client) GetAuditRecord(ctx context.Context, id string) (*models.AuditRecord, error) {
	query := `
		SELECT id, request_snapshot, response_snapshot, decision, created_at, decided_at
		FROM suggestion_audit WHERE id = ?
	`

	var r models.AuditRecord
	var decision string
	var createdAt int64
	var decidedAt sql.NullInt64

	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.RequestSnapshot, &r.ResponseSnapshot, &decision, &createdAt, &decidedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit record: %w", err)
	}

	r.Decision = models.Decision(decision)
	r.CreatedAt = time.Unix(createdAt, 0)
	if decidedAt.Valid {
		t := time.Unix(decidedAt.Int64, 0)
		r.DecidedAt = &t
	}

	return &r, nil
}

func (c *Client) ListAuditRecords(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	query := `
		SELECT id, request_snapshot, response_snapshot, decision, created_at, decided_at
		FROM suggestion_audit
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var r models.AuditRecord
		var decision string
		var createdAt int64
		var decidedAt sql.NullInt64

		err := rows.Scan(&r.ID, &r.RequestSnapshot, &r.ResponseSnapshot, &decision, &createdAt, &decidedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Decision = models.Decision(decision)
		r.CreatedAt = time.Unix(createdAt, 0)
		if decidedAt.Valid {
			t := time.Unix(decidedAt.Int64, 0)
			r.DecidedAt = &t
		}

		records = append(records, r)
	}

	return records, rows.Err()
}

// DecisionCounts returns audit totals by decision, the raw signal for the
// accept-rate gauge.
func (c *Client) DecisionCounts(ctx context.Context) (map[models.Decision]int, error) {
	query := `SELECT decision, COUNT(*) FROM suggestion_audit GROUP BY decision`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Decision]int)
	for rows.Next() {
		var decision string
		var n int
		if err := rows.Scan(&decision, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[models.Decision(decision)] = n
	}

	return counts, rows.Err()
}
