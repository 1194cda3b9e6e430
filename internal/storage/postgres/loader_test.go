package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
)

func TestDeriveBudget(t *testing.T) {
	t.Run("total from actuals plus open commitments", func(t *testing.T) {
		budget, ok := DeriveBudget(domain.Project{
			SAPProjectDefinition: "USFC-009320",
			SAPActuals:           100000,
			SAPOpenCommitments:   40000,
			TotalContractAmount:  250000,
			ContractorPOAmount:   150000,
			LucernexUpdatedAt:    "2025-06-01",
		})
		require.True(t, ok)
		assert.Equal(t, 140000.0, budget.BudgetTotal)
		assert.Equal(t, 40000.0, budget.BudgetOpen)
		assert.Equal(t, 150000.0, budget.BudgetCommitted)
		assert.Equal(t, 100000.0, budget.BudgetActuals)
		assert.Equal(t, "2025-06-01", budget.SAPUpdatedAt)
	})

	t.Run("falls back to contract amount when sum is zero", func(t *testing.T) {
		budget, ok := DeriveBudget(domain.Project{
			SAPProjectDefinition: "USFC-009320",
			TotalContractAmount:  250000,
		})
		require.True(t, ok)
		assert.Equal(t, 250000.0, budget.BudgetTotal)
	})

	t.Run("falls back when sum is negative", func(t *testing.T) {
		budget, ok := DeriveBudget(domain.Project{
			SAPProjectDefinition: "USFC-009320",
			SAPActuals:           -5000,
			SAPOpenCommitments:   1000,
			TotalContractAmount:  250000,
		})
		require.True(t, ok)
		assert.Equal(t, 250000.0, budget.BudgetTotal)
	})

	t.Run("no cost center means no budget row", func(t *testing.T) {
		_, ok := DeriveBudget(domain.Project{SAPActuals: 100})
		assert.False(t, ok)
	})
}
