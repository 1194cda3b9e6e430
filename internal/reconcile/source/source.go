package source

import (
	"context"
	"strings"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
)

// UmbrellaSAPDef is the shared parent node that Sam's Club UCO/ACC tank
// POs are booked under instead of individual project definitions.
const UmbrellaSAPDef = "USMS-001700"

// TrackedWBSNodes maps SAP program positions to display labels for the
// plumbing fund overview.
var TrackedWBSNodes = map[string]string{
	"WMUS.SG.FAC.UP.PLB":  "Plumbing",
	"WMUS.SG.FAC.UP.TANK": "Tanks",
	"WMUS.SG.FAC.UP.LIFT": "Lift Stations",
}

// Extractor pulls raw source-native records from the upstream systems of
// record. Implementations own query logic; the pipeline owns reconciliation.
type Extractor interface {
	// Projects returns all active plumbing project records with both
	// candidate identifiers populated where available.
	Projects(ctx context.Context) ([]domain.SourceProject, error)

	// DirectPOs returns aggregated PO rows for the given SAP project
	// definitions, keyed back to the originating definition.
	DirectPOs(ctx context.Context, sapDefs []string) ([]domain.PurchaseOrder, error)

	// UmbrellaPOs returns the raw PO feed booked under UmbrellaSAPDef.
	UmbrellaPOs(ctx context.Context) ([]domain.UmbrellaPO, error)

	// POsByNumber fetches specific POs by number. Results carry no
	// cost-center key; the caller attaches one.
	POsByNumber(ctx context.Context, poNumbers []string) ([]domain.PurchaseOrder, error)

	// WBSNodeBudgets returns per-year budget rows for the tracked
	// program positions.
	WBSNodeBudgets(ctx context.Context) ([]domain.WBSNodeBudget, error)

	// Freshness returns the source table's own last-modified timestamp
	// for one of the domain.Source* keys.
	Freshness(ctx context.Context, sourceKey string) (string, error)
}

// POProjectDef converts a SAP project definition to the PO table's key
// format: strip the dash and append five zeros.
// "USFC-009320" -> "USFC00932000000". This transform is the join bridge
// between the two identifier schemes and must not change.
func POProjectDef(sapDef string) string {
	return strings.ReplaceAll(sapDef, "-", "") + "00000"
}
