package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
)

func TestMineCommentPOs(t *testing.T) {
	t.Run("extracts from both comment fields", func(t *testing.T) {
		projects := []domain.Project{{
			SAPProjectDefinition: "USFC-000001",
			PMOSrPMComments:      "APTIM PO# 40836460 issued for tank work",
			CECComments:          "installer PO 40111111 pending approval",
		}}

		got := MineCommentPOs(projects)
		assert.Equal(t, map[string]string{
			"40836460": "USFC-000001",
			"40111111": "USFC-000001",
		}, got)
	})

	t.Run("matches case and optional hash", func(t *testing.T) {
		projects := []domain.Project{{
			SAPProjectDefinition: "USFC-000002",
			PMOSrPMComments:      "aptim po 40222222 and INSTALLER PO#40333333",
		}}

		got := MineCommentPOs(projects)
		assert.Equal(t, "USFC-000002", got["40222222"])
		assert.Equal(t, "USFC-000002", got["40333333"])
	})

	t.Run("requires eight digits", func(t *testing.T) {
		projects := []domain.Project{{
			SAPProjectDefinition: "USFC-000003",
			PMOSrPMComments:      "APTIM PO# 1234567",
		}}
		assert.Empty(t, MineCommentPOs(projects))
	})

	t.Run("projects without cost center skipped", func(t *testing.T) {
		projects := []domain.Project{{
			PMOSrPMComments: "APTIM PO# 40836460",
		}}
		assert.Empty(t, MineCommentPOs(projects))
	})

	t.Run("later project wins a contested PO", func(t *testing.T) {
		projects := []domain.Project{
			{SAPProjectDefinition: "USFC-000001", PMOSrPMComments: "APTIM PO# 40836460"},
			{SAPProjectDefinition: "USFC-000002", CECComments: "APTIM PO# 40836460"},
		}
		got := MineCommentPOs(projects)
		assert.Equal(t, "USFC-000002", got["40836460"])
	})
}

func TestMissingPONumbers(t *testing.T) {
	mined := map[string]string{
		"40000003": "USFC-000001",
		"40000001": "USFC-000001",
		"40000002": "USFC-000002",
	}
	existing := map[string]struct{}{"40000002": {}}

	got := MissingPONumbers(mined, existing)
	assert.Equal(t, []string{"40000001", "40000003"}, got)
}

func TestAttachRecovered(t *testing.T) {
	poToSAP := map[string]string{"40000001": "USFC-000001", "40000002": "USFC-000002"}

	fetched := []domain.PurchaseOrder{
		{PONumber: "40000001", POTotal: 5000, InvoicedToDate: 1000},
		{PONumber: "40000002", POTotal: 0, InvoicedToDate: 0},
	}

	got := AttachRecovered(fetched, poToSAP)
	assert.Len(t, got, 1)
	assert.Equal(t, "40000001", got[0].PONumber)
	assert.Equal(t, "USFC-000001", got[0].SAPProjectDefinition)
}
