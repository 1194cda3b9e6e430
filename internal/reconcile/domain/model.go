package domain

// SourceProject is a raw project record as returned by the warehouse,
// carrying both candidate identifiers before identity resolution.
type SourceProject struct {
	WarehouseRecordID    string // FMPM Record_ID_Nbr
	LucernexEntityID     string // Lucernex ProjectEntityID, may be empty
	ProjectType          string
	Store                string
	SequenceNumber       string // Lucernex Sequence_Number, may be empty
	StoreSequence        string // Lucernex StoreSequenceNbr, may be empty
	City                 string
	State                string
	ProjectStatus        string
	SAPProjectDefinition string // cost-center key, empty = no financial linkage
	BriefScopeOfWork     string
	Contractor           string // FMPM-reported contractor, may be empty
	LxGCFirm             string // Lucernex GC firm, fallback value only
	SAPActuals           float64
	SAPOpenCommitments   float64
	TotalContractAmount  float64
	ContractorPOAmount   float64
	StoreType            string
	CreatedDate          string
	ConstructionComplete string
	PMOSrPMComments      string
	CECComments          string
	UpdatedAt            string
}

// Project is the reconciled record persisted by the loader. ProjectID is
// the canonical identifier and the join anchor for POs and budgets.
type Project struct {
	ProjectID            string `json:"project_id"`
	LucernexEntityID     string `json:"lx_entity_id,omitempty"`
	ProjectType          string `json:"project_type"`
	Store                string `json:"store"`
	Sequence             string `json:"sequence"`
	StoreSequence        string `json:"store_sequence"`
	City                 string `json:"city"`
	State                string `json:"state"`
	ProjectStatus        string `json:"project_status"`
	SAPProjectDefinition string `json:"sap_project_definition"`
	BriefScopeOfWork     string `json:"brief_scope_of_work"`
	GeneralContractor    string `json:"general_contractor"`
	LxGCFirm             string `json:"-"`
	StoreType            string `json:"store_type"`
	Banner               string `json:"banner"`
	CreatedDate          string `json:"created_date"`
	ConstructionComplete string `json:"construction_complete_date"`
	PMOSrPMComments      string `json:"pmo_sr_pm_comments"`
	CECComments          string `json:"cec_comments"`
	LucernexUpdatedAt    string `json:"lucernex_updated_at"`

	// Direct financial fields carried through for budget derivation.
	SAPActuals          float64 `json:"-"`
	SAPOpenCommitments  float64 `json:"-"`
	TotalContractAmount float64 `json:"-"`
	ContractorPOAmount  float64 `json:"-"`
}

// PurchaseOrder is one merged PO row. PONumber is unique across all
// source paths; SAPProjectDefinition joins back to the owning project.
type PurchaseOrder struct {
	PONumber             string  `json:"po_number"`
	SAPProjectDefinition string  `json:"sap_project_definition"`
	Vendor               string  `json:"vendor"`
	POTotal              float64 `json:"po_total"`
	InvoicedToDate       float64 `json:"invoiced_to_date"`
	RemainingToInvoice   float64 `json:"remaining_to_invoice"`
	POStatus             string  `json:"po_status"`
	CreatedDate          string  `json:"created_date"`
	LastUpdate           string  `json:"last_update"`
}

// UmbrellaPO is a raw PO booked under the shared umbrella cost center,
// before re-attribution. ItemText may encode the real store number.
type UmbrellaPO struct {
	StoreNbr           string
	PONumber           string
	Vendor             string
	ItemText           string
	POTotal            float64
	InvoicedToDate     float64
	RemainingToInvoice float64
	POStatus           string
	CreatedDate        string
	LastUpdate         string
}

// BudgetSummary is derived per cost center from project-level financials.
type BudgetSummary struct {
	SAPProjectDefinition string  `json:"sap_project_definition"`
	BudgetTotal          float64 `json:"budget_total"`
	BudgetOpen           float64 `json:"budget_open"`
	BudgetCommitted      float64 `json:"budget_committed"`
	BudgetActuals        float64 `json:"budget_actuals"`
	SAPUpdatedAt         string  `json:"sap_updated_at"`
}

// WBSNodeBudget is one program-position budget row per approval year.
type WBSNodeBudget struct {
	NodeKey            string  `json:"node_key"`
	ApprovalYear       int     `json:"approval_year"`
	NodeLabel          string  `json:"node_label"`
	Description        string  `json:"description"`
	OriginalBudget     float64 `json:"original_budget"`
	SupplementalBudget float64 `json:"supplemental_budget"`
	ReturnedBudget     float64 `json:"returned_budget"`
	CurrentBudget      float64 `json:"current_budget"`
	Actuals            float64 `json:"actuals"`
	OpenCommitments    float64 `json:"open_commitments"`
	BudgetAvailable    float64 `json:"budget_available"`
	DistributedBudget  float64 `json:"distributed_budget"`
	BudgetCFFromPrev   float64 `json:"budget_cf_from_prev"`
	BudgetCFToNext     float64 `json:"budget_cf_to_next"`
	ProjectCount       int     `json:"project_count"`
	LastUpdated        string  `json:"last_updated"`
}

// RefreshMetadata records per-source freshness. Overwritten wholesale on
// every refresh; SourceLastUpdated is "Unknown" when the lookup failed.
type RefreshMetadata struct {
	SourceKey            string `json:"source_key"`
	SourceLabel          string `json:"source_label"`
	SourceLastUpdated    string `json:"source_last_updated"`
	DashboardRefreshedAt string `json:"dashboard_refreshed_at"`
}

// UnknownFreshness is the sentinel recorded when a source's freshness
// timestamp could not be retrieved.
const UnknownFreshness = "Unknown"

// Freshness source keys tracked in refresh_metadata.
const (
	SourceLucernexProjects = "lucernex_projects"
	SourceFMPMProjects     = "fmpm_projects"
	SourceSAPPOs           = "sap_purchase_orders"
)

// SourceLabels maps freshness source keys to display labels.
var SourceLabels = map[string]string{
	SourceLucernexProjects: "Lucernex Projects",
	SourceFMPMProjects:     "FMPM Projects",
	SourceSAPPOs:           "SAP Purchase Orders",
}
