// Package attribute re-homes PO records that carry no direct cost-center
// link: umbrella-booked POs (by store-number evidence) and POs referenced
// only in project commentary.
package attribute

import (
	"log"
	"regexp"
	"strings"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
)

// umbrellaVendors are the plumbing vendors known to book Sam's Club
// UCO/ACC tank work under the shared umbrella node. Matched as
// case-insensitive substrings of the PO vendor name.
var umbrellaVendors = []string{
	"APTIM Environmental",
	"United Installers",
	"Reynalds Brothers",
	"Kleenco Maintenance",
	"Stokes Plumbing",
}

// itemTextStoreRe extracts the real store number from item text like
// "4724UCOTanks". Some vendors book every PO to a hub store and encode
// the actual store here.
var itemTextStoreRe = regexp.MustCompile(`(?i)^(\d+)UCOTank`)

func isUmbrellaVendor(vendor string) bool {
	v := strings.ToUpper(vendor)
	for _, known := range umbrellaVendors {
		if strings.Contains(v, strings.ToUpper(known)) {
			return true
		}
	}
	return false
}

// realStore resolves the store a PO actually belongs to: the item-text
// pattern wins over the record's own store field.
func realStore(po domain.UmbrellaPO) string {
	if m := itemTextStoreRe.FindStringSubmatch(po.ItemText); m != nil {
		return m[1]
	}
	return po.StoreNbr
}

// UmbrellaPOs maps umbrella-booked POs onto individual projects via the
// store -> cost-center lookup. Records from unknown vendors are ignored;
// records whose store has no cost center are skipped for this run and
// logged, to be retried on the next refresh.
func UmbrellaPOs(raw []domain.UmbrellaPO, storeToSAP map[string]string) []domain.PurchaseOrder {
	var mapped []domain.PurchaseOrder
	skipped := 0

	for _, po := range raw {
		if !isUmbrellaVendor(po.Vendor) {
			continue
		}

		sapDef, ok := storeToSAP[realStore(po)]
		if !ok {
			skipped++
			continue
		}

		mapped = append(mapped, domain.PurchaseOrder{
			PONumber:             po.PONumber,
			SAPProjectDefinition: sapDef,
			Vendor:               po.Vendor,
			POTotal:              po.POTotal,
			InvoicedToDate:       po.InvoicedToDate,
			RemainingToInvoice:   po.RemainingToInvoice,
			POStatus:             po.POStatus,
			CreatedDate:          po.CreatedDate,
			LastUpdate:           po.LastUpdate,
		})
	}

	log.Printf("[attribute] mapped %d umbrella POs to projects (%d skipped - no project match)",
		len(mapped), skipped)
	return mapped
}
