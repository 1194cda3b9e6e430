// Package reconcile merges purchase-order sets discovered through the
// direct, umbrella and comment-recovery paths into one deduplicated list.
package reconcile

import (
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
)

// MergePOs unions the given PO sets in discovery order. A PO number
// appears at most once in the result; the earliest-found instance wins.
// Remaining-to-invoice is recomputed so the identity
// remaining = total - invoiced holds for every merged row.
func MergePOs(sets ...[]domain.PurchaseOrder) []domain.PurchaseOrder {
	var merged []domain.PurchaseOrder
	seen := make(map[string]struct{})

	for _, set := range sets {
		for _, po := range set {
			if _, ok := seen[po.PONumber]; ok {
				continue
			}
			seen[po.PONumber] = struct{}{}
			po.RemainingToInvoice = po.POTotal - po.InvoicedToDate
			merged = append(merged, po)
		}
	}
	return merged
}

// PONumbers returns the set of PO numbers present in the given list.
func PONumbers(pos []domain.PurchaseOrder) map[string]struct{} {
	set := make(map[string]struct{}, len(pos))
	for _, po := range pos {
		set[po.PONumber] = struct{}{}
	}
	return set
}
