// Package resolve derives canonical project identities and the
// store -> cost-center lookup used by indirect PO attribution.
package resolve

import (
	"strings"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
)

// Project builds the reconciled record from a raw source row. The
// Lucernex entity id is the canonical identifier when present; the
// warehouse record id is the fallback. Once assigned the id is the join
// anchor for all PO and budget rows and never changes.
func Project(sp domain.SourceProject) domain.Project {
	projectID := sp.LucernexEntityID
	if projectID == "" {
		projectID = sp.WarehouseRecordID
	}

	sequence := sp.SequenceNumber
	if sequence == "" {
		sequence = sp.WarehouseRecordID
	}

	storeSequence := sp.StoreSequence
	if storeSequence == "" {
		storeSequence = sp.Store + "." + sp.WarehouseRecordID
	}

	return domain.Project{
		ProjectID:            projectID,
		LucernexEntityID:     sp.LucernexEntityID,
		ProjectType:          sp.ProjectType,
		Store:                sp.Store,
		Sequence:             sequence,
		StoreSequence:        storeSequence,
		City:                 sp.City,
		State:                sp.State,
		ProjectStatus:        sp.ProjectStatus,
		SAPProjectDefinition: sp.SAPProjectDefinition,
		BriefScopeOfWork:     sp.BriefScopeOfWork,
		// Contractor precedence: source field if set, otherwise left
		// empty for the loader's PO-vendor backfill. The Lucernex GC
		// firm is carried as a fallback value only; it is known to
		// contain concatenation artifacts and is never auto-applied.
		GeneralContractor:    sp.Contractor,
		LxGCFirm:             sp.LxGCFirm,
		StoreType:            sp.StoreType,
		Banner:               domain.ResolveBanner(sp.StoreType),
		CreatedDate:          sp.CreatedDate,
		ConstructionComplete: sp.ConstructionComplete,
		PMOSrPMComments:      sp.PMOSrPMComments,
		CECComments:          sp.CECComments,
		LucernexUpdatedAt:    sp.UpdatedAt,
		SAPActuals:           sp.SAPActuals,
		SAPOpenCommitments:   sp.SAPOpenCommitments,
		TotalContractAmount:  sp.TotalContractAmount,
		ContractorPOAmount:   sp.ContractorPOAmount,
	}
}

// Candidate ranks for StoreCostCenters. Higher rank strictly wins;
// equal rank keeps the earlier record, so the ordering is total and
// independent of discovery order.
const (
	rankFlagged     = 0 // scope marked duplicate/cancelled
	rankClean       = 1
	rankCleanActive = 2
)

func candidateRank(p domain.SourceProject) int {
	scope := strings.ToLower(p.BriefScopeOfWork)
	if strings.Contains(scope, "duplicate") || strings.Contains(scope, "cancelled") {
		return rankFlagged
	}
	if strings.EqualFold(strings.TrimSpace(p.ProjectStatus), "active") {
		return rankCleanActive
	}
	return rankClean
}

// StoreCostCenters maps store number -> SAP project definition for every
// project carrying both. When multiple projects share a store, the
// highest-ranked candidate wins; a store with only flagged candidates
// keeps the first one seen.
func StoreCostCenters(projects []domain.SourceProject) map[string]string {
	type entry struct {
		sapDef string
		rank   int
	}
	best := make(map[string]entry)

	for _, p := range projects {
		if p.Store == "" || p.SAPProjectDefinition == "" {
			continue
		}
		rank := candidateRank(p)
		if cur, ok := best[p.Store]; ok && rank <= cur.rank {
			continue
		}
		best[p.Store] = entry{sapDef: p.SAPProjectDefinition, rank: rank}
	}

	out := make(map[string]string, len(best))
	for store, e := range best {
		out[store] = e.sapDef
	}
	return out
}
