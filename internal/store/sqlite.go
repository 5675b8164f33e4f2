package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/aaryan23/cold-email-os/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// A single connection serializes writers so transactions never see
// SQLITE_BUSY.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tenants (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'ONBOARDED',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS research_reports (
	id              TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL REFERENCES tenants(id),
	transcript_text TEXT NOT NULL,
	website_url     TEXT NOT NULL DEFAULT '',
	report_json     TEXT,
	report_text     TEXT NOT NULL DEFAULT '',
	is_active       INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'pending',
	error           TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uniq_research_reports_active
	ON research_reports(tenant_id) WHERE is_active = 1;

CREATE TABLE IF NOT EXISTS kb_documents (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT,
	title       TEXT NOT NULL,
	doc_type    TEXT NOT NULL,
	source_type TEXT NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS kb_chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES kb_documents(id),
	tenant_id   TEXT,
	chunk_index INTEGER NOT NULL,
	text        TEXT NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS generations (
	id                  TEXT PRIMARY KEY,
	tenant_id           TEXT NOT NULL REFERENCES tenants(id),
	persona             TEXT NOT NULL,
	vertical            TEXT NOT NULL DEFAULT '',
	sequence_length     INTEGER NOT NULL,
	retrieved_chunk_ids TEXT NOT NULL DEFAULT '[]',
	output              TEXT NOT NULL,
	created_at          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS search_cache (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_research_reports_tenant ON research_reports(tenant_id);
CREATE INDEX IF NOT EXISTS idx_kb_documents_title_source ON kb_documents(title, source_type);
CREATE INDEX IF NOT EXISTS idx_kb_chunks_tenant ON kb_chunks(tenant_id);
CREATE INDEX IF NOT EXISTS idx_generations_tenant ON generations(tenant_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Tenants

func (s *SQLiteStore) CreateTenant(ctx context.Context, name string) (*model.Tenant, error) {
	now := time.Now().UTC()
	t := &model.Tenant{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    model.TenantOnboarded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, string(t.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert tenant")
	}
	return t, nil
}

func (s *SQLiteStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	var t model.Tenant
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, created_at, updated_at FROM tenants WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "tenant %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get tenant %s", id)
	}
	return &t, nil
}

func (s *SQLiteStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, status, created_at, updated_at FROM tenants ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tenants")
	}
	defer rows.Close()

	var out []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tenant")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate tenants")
}

func (s *SQLiteStore) UpdateTenantStatus(ctx context.Context, id string, status model.TenantStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tenants SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update tenant status %s", id)
	}
	return checkRowsAffected(res, "tenant", id)
}

// DeleteTenant removes dependent rows explicitly since the SQLite schema
// carries no cascades.
func (s *SQLiteStore) DeleteTenant(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM kb_chunks WHERE tenant_id = ?
			 OR document_id IN (SELECT id FROM kb_documents WHERE tenant_id = ?)`,
			id, id,
		); err != nil {
			return eris.Wrapf(err, "sqlite: delete kb chunks for tenant %s", id)
		}
		for _, table := range []string{"kb_documents", "generations", "research_reports"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE tenant_id = ?`, id); err != nil {
				return eris.Wrapf(err, "sqlite: delete %s for tenant %s", table, id)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
		if err != nil {
			return eris.Wrapf(err, "sqlite: delete tenant %s", id)
		}
		return checkRowsAffected(res, "tenant", id)
	})
}

// Research reports

func (s *SQLiteStore) CreatePendingReport(ctx context.Context, tenantID, transcript, websiteURL string) (*model.ResearchReport, error) {
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO research_reports (id, tenant_id, transcript_text, website_url, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, tenantID, transcript, websiteURL, string(model.ReportPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert pending report")
	}
	return r, nil
}

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*model.ResearchReport, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM research_reports WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", id)
	}
	return r, nil
}

func (s *SQLiteStore) GetActiveReport(ctx context.Context, tenantID string) (*model.ResearchReport, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM research_reports WHERE tenant_id = ? AND is_active = 1 LIMIT 1`, tenantID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get active report %s", tenantID)
	}
	return r, nil
}

func (s *SQLiteStore) PublishReport(ctx context.Context, tenantID, reportID string, reportJSON []byte, reportText string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE research_reports SET is_active = 0, updated_at = ? WHERE tenant_id = ? AND is_active = 1`,
			now, tenantID,
		); err != nil {
			return eris.Wrap(err, "sqlite: deactivate reports")
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE research_reports
			 SET report_json = ?, report_text = ?, is_active = 1, status = ?, error = '', updated_at = ?
			 WHERE id = ? AND tenant_id = ?`,
			string(reportJSON), reportText, string(model.ReportCompleted), now, reportID, tenantID,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: activate report %s", reportID)
		}
		if err := checkRowsAffected(res, "report", reportID); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE tenants SET status = ?, updated_at = ? WHERE id = ?`,
			string(model.TenantResearchReady), now, tenantID,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: advance tenant status")
		}
		return checkRowsAffected(res, "tenant", tenantID)
	})
}

func (s *SQLiteStore) FailReport(ctx context.Context, reportID, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE research_reports SET status = ?, error = ?, updated_at = ? WHERE id = ? AND is_active = 0`,
		string(model.ReportFailed), msg, time.Now().UTC(), reportID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail report %s", reportID)
	}
	return checkRowsAffected(res, "inactive report", reportID)
}

func scanReport(row scannable) (*model.ResearchReport, error) {
	var r model.ResearchReport
	var reportJSON sql.NullString
	err := row.Scan(&r.ID, &r.TenantID, &r.TranscriptText, &r.WebsiteURL, &reportJSON,
		&r.ReportText, &r.IsActive, &r.Status, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if reportJSON.Valid && reportJSON.String != "" {
		r.ReportJSON = json.RawMessage(reportJSON.String)
	}
	return &r, nil
}

// Knowledge base

func (s *SQLiteStore) CreateDocument(ctx context.Context, doc model.KBDocument, chunks []string) (*model.KBDocument, error) {
	doc.ID = uuid.New().String()
	doc.CreatedAt = time.Now().UTC()
	doc.Metadata = doc.Metadata.WithDefaults()

	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal metadata")
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kb_documents (id, tenant_id, title, doc_type, source_type, metadata, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			doc.ID, nullable(doc.TenantID), doc.Title, doc.DocType, doc.SourceType, string(meta), doc.CreatedAt,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert document")
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO kb_chunks (id, document_id, tenant_id, chunk_index, text, metadata, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare chunk insert")
		}
		defer stmt.Close()

		for i, text := range chunks {
			if _, err := stmt.ExecContext(ctx,
				uuid.New().String(), doc.ID, nullable(doc.TenantID), i, text, string(meta), doc.CreatedAt,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert chunk %d", i)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *SQLiteStore) FindDocument(ctx context.Context, title, sourceType string) (*model.KBDocument, error) {
	var doc model.KBDocument
	var tenantID sql.NullString
	var meta string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, title, doc_type, source_type, metadata, created_at
		 FROM kb_documents WHERE title = ? AND source_type = ? LIMIT 1`,
		title, sourceType,
	).Scan(&doc.ID, &tenantID, &doc.Title, &doc.DocType, &doc.SourceType, &meta, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find document")
	}
	doc.TenantID = tenantID.String
	if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal document metadata")
	}
	return &doc, nil
}

func (s *SQLiteStore) ListVisibleChunks(ctx context.Context, tenantID string) ([]model.KBChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, c.tenant_id, c.chunk_index, c.text, c.metadata, c.created_at, d.title, d.doc_type
		 FROM kb_chunks c JOIN kb_documents d ON d.id = c.document_id
		 WHERE c.tenant_id IS NULL OR c.tenant_id = ?
		 ORDER BY c.created_at, c.document_id, c.chunk_index`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list chunks")
	}
	defer rows.Close()

	var out []model.KBChunk
	for rows.Next() {
		var c model.KBChunk
		var owner sql.NullString
		var meta string
		if err := rows.Scan(&c.ID, &c.DocumentID, &owner, &c.ChunkIndex, &c.Text, &meta,
			&c.CreatedAt, &c.DocTitle, &c.DocType); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan chunk")
		}
		c.TenantID = owner.String
		if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal chunk metadata %s", c.ID)
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate chunks")
}

// Generations

func (s *SQLiteStore) RecordGeneration(ctx context.Context, g *model.Generation) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	g.CreatedAt = time.Now().UTC()

	chunkIDs, err := json.Marshal(nonNil(g.RetrievedChunkIDs))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal chunk ids")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO generations (id, tenant_id, persona, vertical, sequence_length, retrieved_chunk_ids, output, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, g.TenantID, g.Persona, g.Vertical, g.SequenceLength, string(chunkIDs), string(g.Output), g.CreatedAt,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert generation")
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE tenants SET status = ?, updated_at = ? WHERE id = ?`,
			string(model.TenantReadyToGenerate), g.CreatedAt, g.TenantID,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: advance tenant status")
		}
		return checkRowsAffected(res, "tenant", g.TenantID)
	})
}

func (s *SQLiteStore) ListGenerations(ctx context.Context, tenantID string) ([]model.Generation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, persona, vertical, sequence_length, retrieved_chunk_ids, output, created_at
		 FROM generations WHERE tenant_id = ? ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list generations")
	}
	defer rows.Close()

	var out []model.Generation
	for rows.Next() {
		var g model.Generation
		var chunkIDs, output string
		if err := rows.Scan(&g.ID, &g.TenantID, &g.Persona, &g.Vertical, &g.SequenceLength,
			&chunkIDs, &output, &g.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan generation")
		}
		if err := json.Unmarshal([]byte(chunkIDs), &g.RetrievedChunkIDs); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal chunk ids")
		}
		g.Output = json.RawMessage(output)
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate generations")
}

// Cache

func (s *SQLiteStore) GetCached(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM search_cache WHERE key = ? AND expires_at > ?`, key, time.Now().UTC(),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached")
	}
	return value, nil
}

func (s *SQLiteStore) SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, time.Now().UTC().Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached")
}

func (s *SQLiteStore) DeleteExpiredCache(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM search_cache WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired cache")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}
