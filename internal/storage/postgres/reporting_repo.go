package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportingRepo serves the read side of the reconciled tables.
type ReportingRepo struct {
	pool *pgxpool.Pool
}

func NewReportingRepo(pool *pgxpool.Pool) *ReportingRepo {
	return &ReportingRepo{pool: pool}
}

const projectColumns = `
project_id, lx_entity_id, project_type, store, sequence, store_sequence,
city, state, project_status, sap_project_definition,
brief_scope_of_work, general_contractor, lx_gc_firm,
store_type, banner, created_date, construction_complete_date,
pmo_sr_pm_comments, cec_comments, lucernex_updated_at`

func scanProject(row pgx.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ProjectID, &p.LucernexEntityID, &p.ProjectType, &p.Store, &p.Sequence, &p.StoreSequence,
		&p.City, &p.State, &p.ProjectStatus, &p.SAPProjectDefinition,
		&p.BriefScopeOfWork, &p.GeneralContractor, &p.LxGCFirm,
		&p.StoreType, &p.Banner, &p.CreatedDate, &p.ConstructionComplete,
		&p.PMOSrPMComments, &p.CECComments, &p.LucernexUpdatedAt,
	)
	return p, err
}

// ListProjects returns reconciled projects, optionally filtered by status
// and banner (exact match, empty = any).
func (r *ReportingRepo) ListProjects(ctx context.Context, status, banner string) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE 1=1`
	args := []any{}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND project_status = $%d", len(args))
	}
	if banner != "" {
		args = append(args, banner)
		query += fmt.Sprintf(" AND banner = $%d", len(args))
	}
	query += " ORDER BY project_id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 64)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProject returns one project with its linked POs and budget summary.
func (r *ReportingRepo) GetProject(ctx context.Context, projectID string) (*domain.Project, []domain.PurchaseOrder, *domain.BudgetSummary, error) {
	p, err := scanProject(r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE project_id = $1`, projectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get project %s: %w", projectID, err)
	}

	var pos []domain.PurchaseOrder
	var budget *domain.BudgetSummary

	if p.SAPProjectDefinition != "" {
		rows, err := r.pool.Query(ctx, `
SELECT po_number, sap_project_definition, vendor, po_total,
       invoiced_to_date, remaining_to_invoice, po_status, created_date, last_update
FROM sap_po WHERE sap_project_definition = $1 ORDER BY po_number`,
			p.SAPProjectDefinition)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("list project POs: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var po domain.PurchaseOrder
			if err := rows.Scan(
				&po.PONumber, &po.SAPProjectDefinition, &po.Vendor, &po.POTotal,
				&po.InvoicedToDate, &po.RemainingToInvoice, &po.POStatus,
				&po.CreatedDate, &po.LastUpdate,
			); err != nil {
				return nil, nil, nil, err
			}
			pos = append(pos, po)
		}
		if err := rows.Err(); err != nil {
			return nil, nil, nil, err
		}

		var b domain.BudgetSummary
		err = r.pool.QueryRow(ctx, `
SELECT sap_project_definition, budget_total, budget_open, budget_committed, budget_actuals, sap_updated_at
FROM sap_budget WHERE sap_project_definition = $1`,
			p.SAPProjectDefinition).
			Scan(&b.SAPProjectDefinition, &b.BudgetTotal, &b.BudgetOpen,
				&b.BudgetCommitted, &b.BudgetActuals, &b.SAPUpdatedAt)
		if err == nil {
			// PO aggregates are the more trustworthy committed figure
			// when present.
			var poTotal float64
			if aggErr := r.pool.QueryRow(ctx,
				`SELECT COALESCE(SUM(po_total), 0) FROM sap_po WHERE sap_project_definition = $1`,
				p.SAPProjectDefinition).Scan(&poTotal); aggErr == nil && poTotal > 0 {
				b.BudgetCommitted = poTotal
			}
			budget = &b
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil, fmt.Errorf("get budget: %w", err)
		}
	}

	return &p, pos, budget, nil
}

// POListRow is one merged PO joined to its owning project, with the
// downstream reporting flags.
type POListRow struct {
	domain.PurchaseOrder
	ProjectID      string  `json:"project_id"`
	Store          string  `json:"store"`
	StoreSequence  string  `json:"store_sequence"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	ProjectStatus  string  `json:"project_status"`
	IsOverInvoiced bool    `json:"is_over_invoiced"`
	GiveBack       bool    `json:"give_back_flag"`
	GiveBackAmount float64 `json:"give_back_amount"`
}

// ListPOs returns merged PO rows. A give-back is a completed project
// with PO balance remaining uninvoiced.
func (r *ReportingRepo) ListPOs(ctx context.Context, vendor, sapDef string) ([]POListRow, error) {
	query := `
SELECT po.po_number, po.sap_project_definition, po.vendor,
       COALESCE(po.po_total, 0), COALESCE(po.invoiced_to_date, 0),
       COALESCE(po.remaining_to_invoice, 0), po.po_status,
       po.created_date, po.last_update,
       COALESCE(p.project_id, ''), COALESCE(p.store, ''),
       COALESCE(p.store_sequence, ''), COALESCE(p.city, ''),
       COALESCE(p.state, ''), COALESCE(p.project_status, '')
FROM sap_po po
LEFT JOIN projects p ON po.sap_project_definition = p.sap_project_definition
WHERE 1=1`
	args := []any{}
	if vendor != "" {
		args = append(args, vendor)
		query += fmt.Sprintf(" AND po.vendor = $%d", len(args))
	}
	if sapDef != "" {
		args = append(args, sapDef)
		query += fmt.Sprintf(" AND po.sap_project_definition = $%d", len(args))
	}
	query += " ORDER BY po.po_number"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list POs: %w", err)
	}
	defer rows.Close()

	out := make([]POListRow, 0, 64)
	for rows.Next() {
		var row POListRow
		if err := rows.Scan(
			&row.PONumber, &row.SAPProjectDefinition, &row.Vendor,
			&row.POTotal, &row.InvoicedToDate, &row.RemainingToInvoice,
			&row.POStatus, &row.CreatedDate, &row.LastUpdate,
			&row.ProjectID, &row.Store, &row.StoreSequence,
			&row.City, &row.State, &row.ProjectStatus,
		); err != nil {
			return nil, err
		}
		row.IsOverInvoiced = row.InvoicedToDate > row.POTotal
		if row.ProjectStatus == "Complete" && row.RemainingToInvoice > 0 {
			row.GiveBack = true
			row.GiveBackAmount = row.RemainingToInvoice
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RefreshMetadata returns the per-source freshness rows.
func (r *ReportingRepo) RefreshMetadata(ctx context.Context) ([]domain.RefreshMetadata, error) {
	rows, err := r.pool.Query(ctx, `
SELECT source_key, source_label, source_last_updated, dashboard_refreshed_at
FROM refresh_metadata ORDER BY source_key`)
	if err != nil {
		return nil, fmt.Errorf("refresh metadata: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RefreshMetadata, 0, 4)
	for rows.Next() {
		var m domain.RefreshMetadata
		if err := rows.Scan(&m.SourceKey, &m.SourceLabel, &m.SourceLastUpdated, &m.DashboardRefreshedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// WBSNodes returns program-position budget rows, optionally for one year.
func (r *ReportingRepo) WBSNodes(ctx context.Context, year int) ([]domain.WBSNodeBudget, error) {
	query := `
SELECT node_key, approval_year, node_label, description,
       original_budget, supplemental_budget, returned_budget, current_budget,
       actuals, open_commitments, budget_available, distributed_budget,
       budget_cf_from_prev, budget_cf_to_next, project_count, last_updated
FROM sap_wbs_nodes`
	args := []any{}
	if year != 0 {
		args = append(args, year)
		query += " WHERE approval_year = $1"
	}
	query += " ORDER BY node_key, approval_year"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wbs nodes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.WBSNodeBudget, 0, 8)
	for rows.Next() {
		var n domain.WBSNodeBudget
		if err := rows.Scan(
			&n.NodeKey, &n.ApprovalYear, &n.NodeLabel, &n.Description,
			&n.OriginalBudget, &n.SupplementalBudget, &n.ReturnedBudget, &n.CurrentBudget,
			&n.Actuals, &n.OpenCommitments, &n.BudgetAvailable, &n.DistributedBudget,
			&n.BudgetCFFromPrev, &n.BudgetCFToNext, &n.ProjectCount, &n.LastUpdated,
		); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
