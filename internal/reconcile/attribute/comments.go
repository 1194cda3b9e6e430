package attribute

import (
	"regexp"
	"sort"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
)

// commentPORe matches PO numbers written into project commentary, e.g.
// "APTIM PO# 40836460" or "installer PO 40836460".
var commentPORe = regexp.MustCompile(`(?i)(?:APTIM|INSTALLER)\s+PO#?\s*(\d{8})`)

// MineCommentPOs scans both commentary fields of every project and maps
// each referenced PO number to the commenting project's cost center.
// When two projects reference the same PO the later one wins.
func MineCommentPOs(projects []domain.Project) map[string]string {
	poToSAP := make(map[string]string)
	for _, p := range projects {
		if p.SAPProjectDefinition == "" {
			continue
		}
		for _, comments := range []string{p.PMOSrPMComments, p.CECComments} {
			for _, m := range commentPORe.FindAllStringSubmatch(comments, -1) {
				poToSAP[m[1]] = p.SAPProjectDefinition
			}
		}
	}
	return poToSAP
}

// MissingPONumbers returns the mined PO numbers not yet present in the
// merged set, sorted for a deterministic fetch.
func MissingPONumbers(mined map[string]string, existing map[string]struct{}) []string {
	var missing []string
	for po := range mined {
		if _, ok := existing[po]; !ok {
			missing = append(missing, po)
		}
	}
	sort.Strings(missing)
	return missing
}

// AttachRecovered binds fetched comment-referenced POs to the cost center
// recorded during mining and drops records with no financial activity.
func AttachRecovered(fetched []domain.PurchaseOrder, poToSAP map[string]string) []domain.PurchaseOrder {
	var recovered []domain.PurchaseOrder
	for _, po := range fetched {
		if po.POTotal == 0 && po.InvoicedToDate == 0 {
			continue
		}
		po.SAPProjectDefinition = poToSAP[po.PONumber]
		recovered = append(recovered, po)
	}
	return recovered
}
