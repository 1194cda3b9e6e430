package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
)

func TestMergePOs(t *testing.T) {
	t.Run("earlier set wins a duplicate PO number", func(t *testing.T) {
		direct := []domain.PurchaseOrder{
			{PONumber: "40000001", SAPProjectDefinition: "USFC-000001", POTotal: 100},
		}
		umbrella := []domain.PurchaseOrder{
			{PONumber: "40000001", SAPProjectDefinition: "USFC-000999", POTotal: 999},
			{PONumber: "40000002", SAPProjectDefinition: "USFC-000002", POTotal: 200},
		}

		got := MergePOs(direct, umbrella)
		require.Len(t, got, 2)
		assert.Equal(t, "USFC-000001", got[0].SAPProjectDefinition)
		assert.Equal(t, 100.0, got[0].POTotal)
		assert.Equal(t, "40000002", got[1].PONumber)
	})

	t.Run("remaining recomputed from total and invoiced", func(t *testing.T) {
		got := MergePOs([]domain.PurchaseOrder{
			{PONumber: "40000001", POTotal: 1000, InvoicedToDate: 400, RemainingToInvoice: -1},
		})
		require.Len(t, got, 1)
		assert.Equal(t, 600.0, got[0].RemainingToInvoice)
	})

	t.Run("over-invoiced PO yields negative remaining", func(t *testing.T) {
		got := MergePOs([]domain.PurchaseOrder{
			{PONumber: "40000001", POTotal: 1000, InvoicedToDate: 1200},
		})
		assert.Equal(t, -200.0, got[0].RemainingToInvoice)
	})

	t.Run("empty input yields empty result", func(t *testing.T) {
		assert.Empty(t, MergePOs(nil, nil))
	})
}

func TestPONumbers(t *testing.T) {
	set := PONumbers([]domain.PurchaseOrder{
		{PONumber: "40000001"},
		{PONumber: "40000002"},
	})
	assert.Len(t, set, 2)
	_, ok := set["40000001"]
	assert.True(t, ok)
}
