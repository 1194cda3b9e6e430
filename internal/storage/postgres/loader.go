package postgres

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Loader owns all writes to the reporting database. A refresh replaces
// the project, PO and budget tables wholesale inside one transaction so
// readers never observe a half-loaded state.
type Loader struct {
	pool *pgxpool.Pool
}

func NewLoader(pool *pgxpool.Pool) *Loader {
	return &Loader{pool: pool}
}

// DeriveBudget computes the per-cost-center budget summary from a
// project's direct financial fields. Total falls back to the contract
// amount when actuals + open commitments is non-positive. Returns false
// for projects with no cost-center linkage.
func DeriveBudget(p domain.Project) (domain.BudgetSummary, bool) {
	if p.SAPProjectDefinition == "" {
		return domain.BudgetSummary{}, false
	}

	total := p.SAPActuals + p.SAPOpenCommitments
	if total <= 0 {
		total = p.TotalContractAmount
	}

	return domain.BudgetSummary{
		SAPProjectDefinition: p.SAPProjectDefinition,
		BudgetTotal:          total,
		BudgetOpen:           p.SAPOpenCommitments,
		BudgetCommitted:      p.ContractorPOAmount,
		BudgetActuals:        p.SAPActuals,
		SAPUpdatedAt:         p.LucernexUpdatedAt,
	}, true
}

// ReplaceAll clears and reloads projects, budgets and POs, then backfills
// the contractor-of-record from PO vendor data. Everything runs in a
// single transaction.
func (l *Loader) ReplaceAll(ctx context.Context, projects []domain.Project, pos []domain.PurchaseOrder) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin load tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"sap_po", "sap_budget", "projects"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	const insertProject = `
INSERT INTO projects
  (project_id, lx_entity_id, project_type, store, sequence, store_sequence,
   city, state, project_status, sap_project_definition,
   brief_scope_of_work, general_contractor, lx_gc_firm,
   store_type, banner, created_date, construction_complete_date,
   pmo_sr_pm_comments, cec_comments, lucernex_updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
ON CONFLICT (project_id) DO NOTHING
`
	const upsertBudget = `
INSERT INTO sap_budget
  (sap_project_definition, budget_total, budget_open, budget_committed, budget_actuals, sap_updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (sap_project_definition) DO UPDATE SET
  budget_total = EXCLUDED.budget_total,
  budget_open = EXCLUDED.budget_open,
  budget_committed = EXCLUDED.budget_committed,
  budget_actuals = EXCLUDED.budget_actuals,
  sap_updated_at = EXCLUDED.sap_updated_at
`
	for _, p := range projects {
		if _, err := tx.Exec(ctx, insertProject,
			p.ProjectID, p.LucernexEntityID, p.ProjectType, p.Store, p.Sequence, p.StoreSequence,
			p.City, p.State, p.ProjectStatus, p.SAPProjectDefinition,
			p.BriefScopeOfWork, p.GeneralContractor, p.LxGCFirm,
			p.StoreType, p.Banner, p.CreatedDate, p.ConstructionComplete,
			p.PMOSrPMComments, p.CECComments, p.LucernexUpdatedAt,
		); err != nil {
			return fmt.Errorf("insert project %s: %w", p.ProjectID, err)
		}

		if budget, ok := DeriveBudget(p); ok {
			if _, err := tx.Exec(ctx, upsertBudget,
				budget.SAPProjectDefinition, budget.BudgetTotal, budget.BudgetOpen,
				budget.BudgetCommitted, budget.BudgetActuals, budget.SAPUpdatedAt,
			); err != nil {
				return fmt.Errorf("upsert budget %s: %w", budget.SAPProjectDefinition, err)
			}
		}
	}

	const insertPO = `
INSERT INTO sap_po
  (po_number, sap_project_definition, vendor, po_total,
   invoiced_to_date, remaining_to_invoice, po_status, created_date, last_update)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (po_number) DO NOTHING
`
	for _, po := range pos {
		if _, err := tx.Exec(ctx, insertPO,
			po.PONumber, po.SAPProjectDefinition, po.Vendor, po.POTotal,
			po.InvoicedToDate, po.RemainingToInvoice, po.POStatus,
			po.CreatedDate, po.LastUpdate,
		); err != nil {
			return fmt.Errorf("insert PO %s: %w", po.PONumber, err)
		}
	}

	// Backfill contractor from the highest-value PO vendor for every
	// project with PO data. PO vendor evidence overrides the
	// source-reported contractor text. Vendor name is the secondary
	// sort key so ties resolve deterministically.
	const backfill = `
UPDATE projects
SET general_contractor = ranked.vendor
FROM (
    SELECT DISTINCT ON (sap_project_definition) sap_project_definition, vendor
    FROM (
        SELECT sap_project_definition, vendor, SUM(po_total) AS vendor_total
        FROM sap_po
        WHERE sap_project_definition <> ''
        GROUP BY sap_project_definition, vendor
    ) totals
    ORDER BY sap_project_definition, vendor_total DESC, vendor ASC
) ranked
WHERE projects.sap_project_definition = ranked.sap_project_definition
`
	ct, err := tx.Exec(ctx, backfill)
	if err != nil {
		return fmt.Errorf("contractor backfill: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit load tx: %w", err)
	}

	log.Printf("[loader] loaded %d projects, %d POs, contractor set from PO vendor for %d projects",
		len(projects), len(pos), ct.RowsAffected())
	return nil
}

// ReplaceWBSNodes reloads the program-position budget rows. Tracked nodes
// missing upstream get placeholder rows per observed year.
func (l *Loader) ReplaceWBSNodes(ctx context.Context, nodes []domain.WBSNodeBudget, tracked map[string]string) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin wbs tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM sap_wbs_nodes"); err != nil {
		return fmt.Errorf("clear sap_wbs_nodes: %w", err)
	}

	now := time.Now().UTC().Format("2006-01-02 15:04:05 UTC")

	const upsert = `
INSERT INTO sap_wbs_nodes
  (node_key, approval_year, node_label, description,
   original_budget, supplemental_budget, returned_budget, current_budget,
   actuals, open_commitments, budget_available, distributed_budget,
   budget_cf_from_prev, budget_cf_to_next, project_count, last_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (node_key, approval_year) DO UPDATE SET
  node_label = EXCLUDED.node_label,
  description = EXCLUDED.description,
  original_budget = EXCLUDED.original_budget,
  supplemental_budget = EXCLUDED.supplemental_budget,
  returned_budget = EXCLUDED.returned_budget,
  current_budget = EXCLUDED.current_budget,
  actuals = EXCLUDED.actuals,
  open_commitments = EXCLUDED.open_commitments,
  budget_available = EXCLUDED.budget_available,
  distributed_budget = EXCLUDED.distributed_budget,
  budget_cf_from_prev = EXCLUDED.budget_cf_from_prev,
  budget_cf_to_next = EXCLUDED.budget_cf_to_next,
  project_count = EXCLUDED.project_count,
  last_updated = EXCLUDED.last_updated
`
	foundKeys := make(map[string]bool)
	yearSet := make(map[int]bool)
	for _, n := range nodes {
		label, ok := tracked[n.NodeKey]
		if !ok {
			label = n.NodeKey
		}
		foundKeys[n.NodeKey] = true
		yearSet[n.ApprovalYear] = true

		if _, err := tx.Exec(ctx, upsert,
			n.NodeKey, n.ApprovalYear, label, n.Description,
			n.OriginalBudget, n.SupplementalBudget, n.ReturnedBudget, n.CurrentBudget,
			n.Actuals, n.OpenCommitments, n.BudgetAvailable, n.DistributedBudget,
			n.BudgetCFFromPrev, n.BudgetCFToNext, n.ProjectCount, now,
		); err != nil {
			return fmt.Errorf("upsert wbs node %s/%d: %w", n.NodeKey, n.ApprovalYear, err)
		}
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	if len(years) == 0 {
		years = []int{0}
	}
	sort.Ints(years)

	const placeholder = `
INSERT INTO sap_wbs_nodes (node_key, approval_year, node_label, description, last_updated)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (node_key, approval_year) DO NOTHING
`
	for key, label := range tracked {
		if foundKeys[key] {
			continue
		}
		for _, year := range years {
			if _, err := tx.Exec(ctx, placeholder, key, year, label, "Not found in SAP", now); err != nil {
				return fmt.Errorf("insert wbs placeholder %s/%d: %w", key, year, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit wbs tx: %w", err)
	}

	log.Printf("[loader] loaded %d WBS node-year rows", len(nodes))
	return nil
}

// RecordRefreshMetadata overwrites the per-source freshness rows.
func (l *Loader) RecordRefreshMetadata(ctx context.Context, rows []domain.RefreshMetadata) error {
	const upsert = `
INSERT INTO refresh_metadata (source_key, source_label, source_last_updated, dashboard_refreshed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (source_key) DO UPDATE SET
  source_label = EXCLUDED.source_label,
  source_last_updated = EXCLUDED.source_last_updated,
  dashboard_refreshed_at = EXCLUDED.dashboard_refreshed_at
`
	for _, row := range rows {
		if _, err := l.pool.Exec(ctx, upsert,
			row.SourceKey, row.SourceLabel, row.SourceLastUpdated, row.DashboardRefreshedAt,
		); err != nil {
			return fmt.Errorf("record refresh metadata %s: %w", row.SourceKey, err)
		}
	}
	return nil
}
