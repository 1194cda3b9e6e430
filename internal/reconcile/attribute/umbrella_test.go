package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
)

func TestRealStore(t *testing.T) {
	t.Run("item text pattern overrides record store", func(t *testing.T) {
		got := realStore(domain.UmbrellaPO{
			StoreNbr: "8299",
			ItemText: "4724UCOTanks - removal and disposal",
		})
		assert.Equal(t, "4724", got)
	})

	t.Run("case insensitive match", func(t *testing.T) {
		got := realStore(domain.UmbrellaPO{StoreNbr: "8299", ItemText: "4724ucotank install"})
		assert.Equal(t, "4724", got)
	})

	t.Run("pattern must anchor at start", func(t *testing.T) {
		got := realStore(domain.UmbrellaPO{StoreNbr: "8299", ItemText: "Store 4724UCOTanks"})
		assert.Equal(t, "8299", got)
	})

	t.Run("no pattern keeps record store", func(t *testing.T) {
		got := realStore(domain.UmbrellaPO{StoreNbr: "8299", ItemText: "grease trap service"})
		assert.Equal(t, "8299", got)
	})
}

func TestUmbrellaPOs(t *testing.T) {
	storeToSAP := map[string]string{
		"4724": "USFC-009320",
		"6279": "USFC-001111",
	}

	t.Run("maps known vendor via item text store", func(t *testing.T) {
		raw := []domain.UmbrellaPO{{
			StoreNbr:       "8299",
			PONumber:       "40836460",
			Vendor:         "APTIM ENVIRONMENTAL & INFRASTRUCTURE",
			ItemText:       "4724UCOTanks",
			POTotal:        125000,
			InvoicedToDate: 50000,
			POStatus:       "Open",
		}}

		got := UmbrellaPOs(raw, storeToSAP)
		require.Len(t, got, 1)
		assert.Equal(t, "40836460", got[0].PONumber)
		assert.Equal(t, "USFC-009320", got[0].SAPProjectDefinition)
		assert.Equal(t, 125000.0, got[0].POTotal)
	})

	t.Run("unknown vendor ignored", func(t *testing.T) {
		raw := []domain.UmbrellaPO{{
			StoreNbr: "6279", PONumber: "40000001", Vendor: "Some Other Co",
		}}
		assert.Empty(t, UmbrellaPOs(raw, storeToSAP))
	})

	t.Run("store without cost center skipped", func(t *testing.T) {
		raw := []domain.UmbrellaPO{{
			StoreNbr: "9999", PONumber: "40000002", Vendor: "United Installers",
		}}
		assert.Empty(t, UmbrellaPOs(raw, storeToSAP))
	})

	t.Run("vendor match is case-insensitive substring", func(t *testing.T) {
		raw := []domain.UmbrellaPO{{
			StoreNbr: "6279", PONumber: "40000003",
			Vendor: "STOKES PLUMBING INC",
		}}
		got := UmbrellaPOs(raw, storeToSAP)
		require.Len(t, got, 1)
		assert.Equal(t, "USFC-001111", got[0].SAPProjectDefinition)
	})
}
