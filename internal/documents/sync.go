package documents

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Fetcher covers the client calls the sync service needs.
type Fetcher interface {
	FetchAllDocuments(ctx context.Context, projectEntityID string) ([]Document, error)
}

// SyncService pulls documents from Lucernex and mirrors them into the
// lucernex_documents table. Rows that disappear upstream are
// soft-deleted so the download links stop rendering but history stays.
type SyncService struct {
	client Fetcher
	pool   *pgxpool.Pool
}

func NewSyncService(client Fetcher, pool *pgxpool.Pool) *SyncService {
	return &SyncService{client: client, pool: pool}
}

const upsertDocumentQuery = `
	INSERT INTO lucernex_documents (
		doc_id, project_id, folder_id, folder_category, sub_folder,
		doc_name, doc_url, doc_type, doc_size, uploaded_by, uploaded_at,
		last_checked, is_deleted
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,FALSE)
	ON CONFLICT (doc_id, project_id) DO UPDATE SET
		folder_id = EXCLUDED.folder_id,
		folder_category = EXCLUDED.folder_category,
		sub_folder = EXCLUDED.sub_folder,
		doc_name = EXCLUDED.doc_name,
		doc_url = EXCLUDED.doc_url,
		doc_type = EXCLUDED.doc_type,
		doc_size = EXCLUDED.doc_size,
		uploaded_by = EXCLUDED.uploaded_by,
		uploaded_at = EXCLUDED.uploaded_at,
		last_checked = EXCLUDED.last_checked,
		is_deleted = FALSE
`

const softDeleteMissingQuery = `
	UPDATE lucernex_documents
	SET is_deleted = TRUE
	WHERE project_id = $1 AND last_checked < $2 AND is_deleted = FALSE
`

// SyncProject refreshes one project's document mirror. Returns the
// number of live documents seen.
func (s *SyncService) SyncProject(ctx context.Context, projectEntityID string) (int, error) {
	docs, err := s.client.FetchAllDocuments(ctx, projectEntityID)
	if err != nil {
		return 0, err
	}

	checkedAt := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin document sync tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range docs {
		if d.DocID == "" {
			continue
		}
		_, err := tx.Exec(ctx, upsertDocumentQuery,
			d.DocID, d.ProjectID, d.FolderID, d.FolderCategory, d.SubFolder,
			d.DocName, d.DocURL, d.DocType, d.DocSize, d.UploadedBy, d.UploadedAt,
			checkedAt)
		if err != nil {
			return 0, fmt.Errorf("upsert document %s: %w", d.DocID, err)
		}
	}

	if _, err := tx.Exec(ctx, softDeleteMissingQuery, projectEntityID, checkedAt); err != nil {
		return 0, fmt.Errorf("soft-delete stale documents: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit document sync tx: %w", err)
	}
	return len(docs), nil
}

// SyncAll syncs every project known to Lucernex. Failures are logged
// and the loop keeps going.
func (s *SyncService) SyncAll(ctx context.Context) error {
	rows, err := s.pool.Query(ctx,
		`SELECT lx_entity_id FROM projects WHERE lx_entity_id <> ''`)
	if err != nil {
		return fmt.Errorf("list project entity ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("collect project entity ids: %w", err)
	}

	var failed int
	for _, id := range ids {
		if _, err := s.SyncProject(ctx, id); err != nil {
			failed++
			log.Printf("[documents] sync failed for project %s: %v", id, err)
		}
	}
	log.Printf("[documents] sync complete: %d projects, %d failed", len(ids), failed)
	if failed == len(ids) && failed > 0 {
		return fmt.Errorf("document sync failed for all %d projects", failed)
	}
	return nil
}

// ListProjectDocuments returns the live document mirror for a project,
// newest uploads first.
func (s *SyncService) ListProjectDocuments(ctx context.Context, projectEntityID string) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doc_id, project_id, folder_id, folder_category, sub_folder,
		       doc_name, doc_url, doc_type, doc_size, uploaded_by, uploaded_at,
		       last_checked
		FROM lucernex_documents
		WHERE project_id = $1 AND is_deleted = FALSE
		ORDER BY folder_category, sub_folder, uploaded_at DESC`,
		projectEntityID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.DocID, &d.ProjectID, &d.FolderID, &d.FolderCategory,
			&d.SubFolder, &d.DocName, &d.DocURL, &d.DocType, &d.DocSize,
			&d.UploadedBy, &d.UploadedAt, &d.LastChecked); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
