package source

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
	"github.com/lib/pq"
)

// WarehouseExtractor reads the ODS warehouse mirror over database/sql.
type WarehouseExtractor struct {
	db *sql.DB
}

func NewWarehouseExtractor(db *sql.DB) *WarehouseExtractor {
	return &WarehouseExtractor{db: db}
}

func (w *WarehouseExtractor) Projects(ctx context.Context) ([]domain.SourceProject, error) {
	const query = `
SELECT
    CAST(p.record_id_nbr AS TEXT),
    COALESCE(CAST(lx.project_entity_id AS TEXT), ''),
    p.program_type,
    CAST(p.store_nbr AS TEXT),
    COALESCE(lx.sequence_number, ''),
    COALESCE(lx.store_sequence_nbr, ''),
    COALESCE(p.city, ''),
    COALESCE(p.state, ''),
    COALESCE(p.project_status, ''),
    COALESCE(p.sap_project_definition_nbr, ''),
    COALESCE(lx.brief_scope_of_work, ''),
    COALESCE(p.contractor, ''),
    COALESCE(lx.generalcontractor_firm, ''),
    COALESCE(p.sap_actuals, 0),
    COALESCE(p.sap_open_commitments, 0),
    COALESCE(p.total_contract_amount, 0),
    COALESCE(p.contractor_sap_po_amount, 0),
    COALESCE(CAST(p.date_created AS TEXT), ''),
    COALESCE(CAST(p.completion_date_actual AS TEXT), ''),
    COALESCE(lx.pmo_srpm_comments, ''),
    COALESCE(lx.cec_comments, ''),
    COALESCE(CAST(p.date_modified AS TEXT), ''),
    COALESCE(p.store_type, '')
FROM qb_fmpm_project_cur p
LEFT JOIN lx_all_projects_curr lx
    ON p.sap_project_definition_nbr = lx.sap_project_definition
WHERE UPPER(p.program_type) LIKE '%PLBG%'
  AND p.is_active = TRUE
ORDER BY p.date_modified DESC
`
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.SourceProject
	for rows.Next() {
		var p domain.SourceProject
		if err := rows.Scan(
			&p.WarehouseRecordID, &p.LucernexEntityID, &p.ProjectType, &p.Store,
			&p.SequenceNumber, &p.StoreSequence, &p.City, &p.State,
			&p.ProjectStatus, &p.SAPProjectDefinition, &p.BriefScopeOfWork,
			&p.Contractor, &p.LxGCFirm,
			&p.SAPActuals, &p.SAPOpenCommitments, &p.TotalContractAmount,
			&p.ContractorPOAmount,
			&p.CreatedDate, &p.ConstructionComplete,
			&p.PMOSrPMComments, &p.CECComments, &p.UpdatedAt,
			&p.StoreType,
		); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		// "!Unknown" is a Lucernex placeholder, not a real firm.
		if p.LxGCFirm == "!Unknown" {
			p.LxGCFirm = ""
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project rows: %w", err)
	}

	log.Printf("[source] pulled %d plumbing projects", len(projects))
	return projects, nil
}

// DirectPOs aggregates the PO feed for the given SAP definitions. PO value
// and invoice value live on separate warehouse rows, so each is summed
// independently per (po_nbr, vendor).
func (w *WarehouseExtractor) DirectPOs(ctx context.Context, sapDefs []string) ([]domain.PurchaseOrder, error) {
	if len(sapDefs) == 0 {
		return nil, nil
	}

	// Reverse map from the PO table's key format back to the SAP def.
	poDefs := make([]string, 0, len(sapDefs))
	backToSAP := make(map[string]string, len(sapDefs))
	for _, def := range sapDefs {
		if def == "" {
			continue
		}
		poDef := POProjectDef(def)
		poDefs = append(poDefs, poDef)
		backToSAP[poDef] = def
	}
	sort.Strings(poDefs)

	const query = `
SELECT
    po.po_nbr,
    po.project_definition,
    po.vendor_name,
    COALESCE(SUM(po.net_po_lc_amt), 0),
    COALESCE(SUM(po.invoiced_lc_amt), 0),
    COALESCE(MAX(po.pur_doc_sts), ''),
    COALESCE(CAST(MIN(po.document_date) AS TEXT), ''),
    COALESCE(CAST(MAX(po.ods_updated_datetime) AS TEXT), '')
FROM vw_rps_purchase_order po
WHERE po.project_definition = ANY($1)
GROUP BY po.po_nbr, po.project_definition, po.vendor_name
HAVING COALESCE(SUM(po.net_po_lc_amt), 0) > 0
    OR COALESCE(SUM(po.invoiced_lc_amt), 0) > 0
ORDER BY MIN(po.document_date) DESC
`
	rows, err := w.db.QueryContext(ctx, query, pq.Array(poDefs))
	if err != nil {
		return nil, fmt.Errorf("query direct POs: %w", err)
	}
	defer rows.Close()

	var pos []domain.PurchaseOrder
	for rows.Next() {
		var po domain.PurchaseOrder
		var projectDef string
		if err := rows.Scan(
			&po.PONumber, &projectDef, &po.Vendor,
			&po.POTotal, &po.InvoicedToDate,
			&po.POStatus, &po.CreatedDate, &po.LastUpdate,
		); err != nil {
			return nil, fmt.Errorf("scan PO row: %w", err)
		}
		po.SAPProjectDefinition = backToSAP[projectDef]
		po.RemainingToInvoice = po.POTotal - po.InvoicedToDate
		pos = append(pos, po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate PO rows: %w", err)
	}

	log.Printf("[source] pulled %d direct PO records", len(pos))
	return pos, nil
}

func (w *WarehouseExtractor) UmbrellaPOs(ctx context.Context) ([]domain.UmbrellaPO, error) {
	const query = `
SELECT
    CAST(po.store_nbr AS TEXT),
    po.po_nbr,
    po.vendor_name,
    COALESCE(po.item_text, ''),
    COALESCE(SUM(po.net_po_lc_amt), 0),
    COALESCE(SUM(po.invoiced_lc_amt), 0),
    COALESCE(MAX(po.pur_doc_sts), ''),
    COALESCE(CAST(MIN(po.document_date) AS TEXT), ''),
    COALESCE(CAST(MAX(po.ods_updated_datetime) AS TEXT), '')
FROM vw_rps_purchase_order po
WHERE po.project_definition = $1
GROUP BY po.store_nbr, po.po_nbr, po.vendor_name, po.item_text
HAVING COALESCE(SUM(po.net_po_lc_amt), 0) > 0
    OR COALESCE(SUM(po.invoiced_lc_amt), 0) > 0
ORDER BY po.store_nbr, po.po_nbr
`
	rows, err := w.db.QueryContext(ctx, query, POProjectDef(UmbrellaSAPDef))
	if err != nil {
		return nil, fmt.Errorf("query umbrella POs: %w", err)
	}
	defer rows.Close()

	var pos []domain.UmbrellaPO
	for rows.Next() {
		var po domain.UmbrellaPO
		if err := rows.Scan(
			&po.StoreNbr, &po.PONumber, &po.Vendor, &po.ItemText,
			&po.POTotal, &po.InvoicedToDate,
			&po.POStatus, &po.CreatedDate, &po.LastUpdate,
		); err != nil {
			return nil, fmt.Errorf("scan umbrella PO row: %w", err)
		}
		po.RemainingToInvoice = po.POTotal - po.InvoicedToDate
		pos = append(pos, po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate umbrella PO rows: %w", err)
	}

	log.Printf("[source] pulled %d raw umbrella PO records", len(pos))
	return pos, nil
}

func (w *WarehouseExtractor) POsByNumber(ctx context.Context, poNumbers []string) ([]domain.PurchaseOrder, error) {
	if len(poNumbers) == 0 {
		return nil, nil
	}
	sorted := append([]string(nil), poNumbers...)
	sort.Strings(sorted)

	const query = `
SELECT
    po.po_nbr,
    po.vendor_name,
    COALESCE(SUM(po.net_po_lc_amt), 0),
    COALESCE(SUM(po.invoiced_lc_amt), 0),
    COALESCE(MAX(po.pur_doc_sts), ''),
    COALESCE(CAST(MIN(po.document_date) AS TEXT), ''),
    COALESCE(CAST(MAX(po.ods_updated_datetime) AS TEXT), '')
FROM vw_rps_purchase_order po
WHERE po.po_nbr = ANY($1)
GROUP BY po.po_nbr, po.vendor_name
`
	rows, err := w.db.QueryContext(ctx, query, pq.Array(sorted))
	if err != nil {
		return nil, fmt.Errorf("query POs by number: %w", err)
	}
	defer rows.Close()

	var pos []domain.PurchaseOrder
	for rows.Next() {
		var po domain.PurchaseOrder
		if err := rows.Scan(
			&po.PONumber, &po.Vendor,
			&po.POTotal, &po.InvoicedToDate,
			&po.POStatus, &po.CreatedDate, &po.LastUpdate,
		); err != nil {
			return nil, fmt.Errorf("scan PO row: %w", err)
		}
		po.RemainingToInvoice = po.POTotal - po.InvoicedToDate
		pos = append(pos, po)
	}
	return pos, rows.Err()
}

func (w *WarehouseExtractor) WBSNodeBudgets(ctx context.Context) ([]domain.WBSNodeBudget, error) {
	nodeKeys := make([]string, 0, len(TrackedWBSNodes))
	for key := range TrackedWBSNodes {
		nodeKeys = append(nodeKeys, key)
	}
	sort.Strings(nodeKeys)

	const query = `
SELECT
    program_position,
    approval_year,
    COALESCE(MAX(program_position_desc), ''),
    COUNT(DISTINCT project_definition),
    COALESCE(SUM(original_budget), 0),
    COALESCE(SUM(supplemental_budget), 0),
    COALESCE(SUM(returned_budget), 0),
    COALESCE(SUM(current_budget), 0),
    COALESCE(SUM(total_actual), 0),
    COALESCE(SUM(total_commitments), 0),
    COALESCE(SUM(current_budget_available), 0),
    COALESCE(SUM(distributed_budget), 0),
    COALESCE(SUM(budget_cf_from_previous_fiscal_year), 0),
    COALESCE(SUM(budget_cf_to_next_fiscal_year), 0)
FROM vw_rps_rb0224_us_report
WHERE UPPER(program_position) = ANY($1)
  AND approval_year IS NOT NULL
GROUP BY program_position, approval_year
ORDER BY program_position, approval_year
`
	rows, err := w.db.QueryContext(ctx, query, pq.Array(nodeKeys))
	if err != nil {
		return nil, fmt.Errorf("query WBS node budgets: %w", err)
	}
	defer rows.Close()

	var nodes []domain.WBSNodeBudget
	for rows.Next() {
		var n domain.WBSNodeBudget
		if err := rows.Scan(
			&n.NodeKey, &n.ApprovalYear, &n.Description, &n.ProjectCount,
			&n.OriginalBudget, &n.SupplementalBudget, &n.ReturnedBudget,
			&n.CurrentBudget, &n.Actuals, &n.OpenCommitments,
			&n.BudgetAvailable, &n.DistributedBudget,
			&n.BudgetCFFromPrev, &n.BudgetCFToNext,
		); err != nil {
			return nil, fmt.Errorf("scan WBS row: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate WBS rows: %w", err)
	}

	log.Printf("[source] pulled %d WBS node-year rows", len(nodes))
	return nodes, nil
}

// freshnessQueries maps source keys to their last-modified lookups.
var freshnessQueries = map[string]string{
	domain.SourceLucernexProjects: `SELECT COALESCE(CAST(MAX(ods_updated_datetime) AS TEXT), '') FROM lx_all_projects_curr`,
	domain.SourceFMPMProjects:     `SELECT COALESCE(CAST(MAX(date_modified) AS TEXT), '') FROM qb_fmpm_project_cur`,
	domain.SourceSAPPOs:           `SELECT COALESCE(CAST(MAX(ods_updated_datetime) AS TEXT), '') FROM vw_rps_purchase_order`,
}

func (w *WarehouseExtractor) Freshness(ctx context.Context, sourceKey string) (string, error) {
	query, ok := freshnessQueries[sourceKey]
	if !ok {
		return "", fmt.Errorf("unknown freshness source %q", sourceKey)
	}

	var ts string
	if err := w.db.QueryRowContext(ctx, query).Scan(&ts); err != nil {
		return "", fmt.Errorf("freshness lookup for %s: %w", sourceKey, err)
	}
	return ts, nil
}
