package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/aaryan23/cold-email-os/internal/db"
	"github.com/aaryan23/cold-email-os/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tenants (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'ONBOARDED',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS research_reports (
	id              TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	transcript_text TEXT NOT NULL,
	website_url     TEXT NOT NULL DEFAULT '',
	report_json     JSONB,
	report_text     TEXT NOT NULL DEFAULT '',
	is_active       BOOLEAN NOT NULL DEFAULT false,
	status          TEXT NOT NULL DEFAULT 'pending',
	error           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS uniq_research_reports_active
	ON research_reports(tenant_id) WHERE is_active;

CREATE TABLE IF NOT EXISTS kb_documents (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT REFERENCES tenants(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	doc_type    TEXT NOT NULL,
	source_type TEXT NOT NULL,
	metadata    JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS kb_chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES kb_documents(id) ON DELETE CASCADE,
	tenant_id   TEXT,
	chunk_index INTEGER NOT NULL,
	text        TEXT NOT NULL,
	metadata    JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS generations (
	id                  TEXT PRIMARY KEY,
	tenant_id           TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	persona             TEXT NOT NULL,
	vertical            TEXT NOT NULL DEFAULT '',
	sequence_length     INTEGER NOT NULL,
	retrieved_chunk_ids JSONB NOT NULL DEFAULT '[]',
	output              JSONB NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS search_cache (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_research_reports_tenant ON research_reports(tenant_id);
CREATE INDEX IF NOT EXISTS idx_kb_documents_title_source ON kb_documents(title, source_type);
CREATE INDEX IF NOT EXISTS idx_kb_chunks_tenant ON kb_chunks(tenant_id);
CREATE INDEX IF NOT EXISTS idx_generations_tenant ON generations(tenant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
`

// Ping verifies the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Tenants

func (s *PostgresStore) CreateTenant(ctx context.Context, name string) (*model.Tenant, error) {
	now := time.Now().UTC()
	t := &model.Tenant{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    model.TenantOnboarded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Name, string(t.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert tenant")
	}
	return t, nil
}

func (s *PostgresStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	var t model.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, status, created_at, updated_at FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "tenant %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get tenant %s", id)
	}
	return &t, nil
}

func (s *PostgresStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, status, created_at, updated_at FROM tenants ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tenants")
	}
	defer rows.Close()

	var out []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tenant")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate tenants")
}

func (s *PostgresStore) UpdateTenantStatus(ctx context.Context, id string, status model.TenantStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update tenant status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "tenant %s", id)
	}
	return nil
}

// DeleteTenant relies on ON DELETE CASCADE for dependent rows.
func (s *PostgresStore) DeleteTenant(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete tenant %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "tenant %s", id)
	}
	return nil
}

// Research reports

const reportColumns = `id, tenant_id, transcript_text, website_url, report_json, report_text, is_active, status, error, created_at, updated_at`

func (s *PostgresStore) CreatePendingReport(ctx context.Context, tenantID, transcript, websiteURL string) (*model.ResearchReport, error) {
	now := time.Now().UTC()
	r := &model.ResearchReport{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		TranscriptText: transcript,
		WebsiteURL:     websiteURL,
		Status:         model.ReportPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO research_reports (id, tenant_id, transcript_text, website_url, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, tenantID, transcript, websiteURL, string(model.ReportPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert pending report")
	}
	return r, nil
}

func (s *PostgresStore) GetReport(ctx context.Context, id string) (*model.ResearchReport, error) {
	r, err := scanPgReport(s.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM research_reports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", id)
	}
	return r, nil
}

func (s *PostgresStore) GetActiveReport(ctx context.Context, tenantID string) (*model.ResearchReport, error) {
	r, err := scanPgReport(s.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM research_reports WHERE tenant_id = $1 AND is_active LIMIT 1`, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get active report %s", tenantID)
	}
	return r, nil
}

func (s *PostgresStore) PublishReport(ctx context.Context, tenantID, reportID string, reportJSON []byte, reportText string) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		// Serializes concurrent publishers for the same tenant.
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM tenants WHERE id = $1 FOR UPDATE`, tenantID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "tenant %s", tenantID)
		}
		if err != nil {
			return eris.Wrapf(err, "postgres: lock tenant %s", tenantID)
		}

		now := time.Now().UTC()
		if _, err := tx.Exec(ctx,
			`UPDATE research_reports SET is_active = false, updated_at = $1 WHERE tenant_id = $2 AND is_active`,
			now, tenantID,
		); err != nil {
			return eris.Wrap(err, "postgres: deactivate reports")
		}

		tag, err := tx.Exec(ctx,
			`UPDATE research_reports
			 SET report_json = $1, report_text = $2, is_active = true, status = $3, error = '', updated_at = $4
			 WHERE id = $5 AND tenant_id = $6`,
			string(reportJSON), reportText, string(model.ReportCompleted), now, reportID, tenantID,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: activate report %s", reportID)
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrNotFound, "report %s", reportID)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE tenants SET status = $1, updated_at = $2 WHERE id = $3`,
			string(model.TenantResearchReady), now, tenantID,
		); err != nil {
			return eris.Wrap(err, "postgres: advance tenant status")
		}
		return nil
	})
}

func (s *PostgresStore) FailReport(ctx context.Context, reportID, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE research_reports SET status = $1, error = $2, updated_at = $3 WHERE id = $4 AND NOT is_active`,
		string(model.ReportFailed), msg, time.Now().UTC(), reportID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail report %s", reportID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "inactive report %s", reportID)
	}
	return nil
}

func scanPgReport(row pgx.Row) (*model.ResearchReport, error) {
	var r model.ResearchReport
	var reportJSON []byte
	err := row.Scan(&r.ID, &r.TenantID, &r.TranscriptText, &r.WebsiteURL, &reportJSON,
		&r.ReportText, &r.IsActive, &r.Status, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(reportJSON) > 0 {
		r.ReportJSON = reportJSON
	}
	return &r, nil
}

// Knowledge base

var chunkCopyColumns = []string{"id", "document_id", "tenant_id", "chunk_index", "text", "metadata", "created_at"}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc model.KBDocument, chunks []string) (*model.KBDocument, error) {
	doc.ID = uuid.New().String()
	doc.CreatedAt = time.Now().UTC()
	doc.Metadata = doc.Metadata.WithDefaults()

	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal metadata")
	}

	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO kb_documents (id, tenant_id, title, doc_type, source_type, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			doc.ID, nullable(doc.TenantID), doc.Title, doc.DocType, doc.SourceType, string(meta), doc.CreatedAt,
		); err != nil {
			return eris.Wrap(err, "postgres: insert document")
		}

		rows := make([][]any, len(chunks))
		for i, text := range chunks {
			rows[i] = []any{uuid.New().String(), doc.ID, nullable(doc.TenantID), i, text, string(meta), doc.CreatedAt}
		}
		_, err := db.CopyFrom(ctx, tx, "kb_chunks", chunkCopyColumns, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *PostgresStore) FindDocument(ctx context.Context, title, sourceType string) (*model.KBDocument, error) {
	var doc model.KBDocument
	var tenantID *string
	var meta []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, title, doc_type, source_type, metadata, created_at
		 FROM kb_documents WHERE title = $1 AND source_type = $2 LIMIT 1`,
		title, sourceType,
	).Scan(&doc.ID, &tenantID, &doc.Title, &doc.DocType, &doc.SourceType, &meta, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find document")
	}
	if tenantID != nil {
		doc.TenantID = *tenantID
	}
	if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal document metadata")
	}
	return &doc, nil
}

func (s *PostgresStore) ListVisibleChunks(ctx context.Context, tenantID string) ([]model.KBChunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.document_id, c.tenant_id, c.chunk_index, c.text, c.metadata, c.created_at, d.title, d.doc_type
		 FROM kb_chunks c JOIN kb_documents d ON d.id = c.document_id
		 WHERE c.tenant_id IS NULL OR c.tenant_id = $1
		 ORDER BY c.created_at, c.document_id, c.chunk_index`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list chunks")
	}
	defer rows.Close()

	var out []model.KBChunk
	for rows.Next() {
		var c model.KBChunk
		var owner *string
		var meta []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &owner, &c.ChunkIndex, &c.Text, &meta,
			&c.CreatedAt, &c.DocTitle, &c.DocType); err != nil {
			return nil, eris.Wrap(err, "postgres: scan chunk")
		}
		if owner != nil {
			c.TenantID = *owner
		}
		if err := json.Unmarshal(meta, &c.Metadata); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal chunk metadata %s", c.ID)
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate chunks")
}

// Generations

func (s *PostgresStore) RecordGeneration(ctx context.Context, g *model.Generation) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	g.CreatedAt = time.Now().UTC()

	chunkIDs, err := json.Marshal(nonNil(g.RetrievedChunkIDs))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal chunk ids")
	}

	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO generations (id, tenant_id, persona, vertical, sequence_length, retrieved_chunk_ids, output, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			g.ID, g.TenantID, g.Persona, g.Vertical, g.SequenceLength, string(chunkIDs), string(g.Output), g.CreatedAt,
		); err != nil {
			return eris.Wrap(err, "postgres: insert generation")
		}
		tag, err := tx.Exec(ctx,
			`UPDATE tenants SET status = $1, updated_at = $2 WHERE id = $3`,
			string(model.TenantReadyToGenerate), g.CreatedAt, g.TenantID,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: advance tenant status")
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrNotFound, "tenant %s", g.TenantID)
		}
		return nil
	})
}

func (s *PostgresStore) ListGenerations(ctx context.Context, tenantID string) ([]model.Generation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, persona, vertical, sequence_length, retrieved_chunk_ids, output, created_at
		 FROM generations WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list generations")
	}
	defer rows.Close()

	var out []model.Generation
	for rows.Next() {
		var g model.Generation
		var chunkIDs, output []byte
		if err := rows.Scan(&g.ID, &g.TenantID, &g.Persona, &g.Vertical, &g.SequenceLength,
			&chunkIDs, &output, &g.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan generation")
		}
		if err := json.Unmarshal(chunkIDs, &g.RetrievedChunkIDs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal chunk ids")
		}
		g.Output = output
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate generations")
}

// Cache

func (s *PostgresStore) GetCached(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM search_cache WHERE key = $1 AND expires_at > now()`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached")
	}
	return value, nil
}

func (s *PostgresStore) SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO search_cache (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, time.Now().UTC().Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached")
}

func (s *PostgresStore) DeleteExpiredCache(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM search_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired cache")
	}
	return int(tag.RowsAffected()), nil
}

// helpers

// nullable maps an empty tenant ID to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
