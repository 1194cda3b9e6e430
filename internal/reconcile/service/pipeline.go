// Package service orchestrates the reconciliation pipeline: extract,
// resolve, attribute, recover, merge, load — strictly in that order.
package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/attribute"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/resolve"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/source"
)

// Loader persists the reconciled sets. Satisfied by postgres.Loader.
type Loader interface {
	ReplaceAll(ctx context.Context, projects []domain.Project, pos []domain.PurchaseOrder) error
	ReplaceWBSNodes(ctx context.Context, nodes []domain.WBSNodeBudget, tracked map[string]string) error
	RecordRefreshMetadata(ctx context.Context, rows []domain.RefreshMetadata) error
}

// Pipeline is the sequential batch refresh. Extraction and load errors
// abort the run; attribution misses and freshness failures are absorbed
// with logging.
type Pipeline struct {
	src    source.Extractor
	loader Loader
}

func NewPipeline(src source.Extractor, loader Loader) *Pipeline {
	return &Pipeline{src: src, loader: loader}
}

// Run executes one full refresh.
func (p *Pipeline) Run(ctx context.Context) error {
	started := time.Now()
	log.Println("[pipeline] starting refresh")

	rawProjects, err := p.src.Projects(ctx)
	if err != nil {
		return fmt.Errorf("pull projects: %w", err)
	}

	projects := make([]domain.Project, 0, len(rawProjects))
	sapDefSet := make(map[string]struct{})
	for _, rp := range rawProjects {
		projects = append(projects, resolve.Project(rp))
		if rp.SAPProjectDefinition != "" {
			sapDefSet[rp.SAPProjectDefinition] = struct{}{}
		}
	}
	sapDefs := make([]string, 0, len(sapDefSet))
	for def := range sapDefSet {
		sapDefs = append(sapDefs, def)
	}
	sort.Strings(sapDefs)

	direct, err := p.src.DirectPOs(ctx, sapDefs)
	if err != nil {
		return fmt.Errorf("pull direct POs: %w", err)
	}

	storeToSAP := resolve.StoreCostCenters(rawProjects)
	rawUmbrella, err := p.src.UmbrellaPOs(ctx)
	if err != nil {
		return fmt.Errorf("pull umbrella POs: %w", err)
	}
	umbrella := attribute.UmbrellaPOs(rawUmbrella, storeToSAP)

	merged := reconcile.MergePOs(direct, umbrella)
	log.Printf("[pipeline] merged %d direct + umbrella POs", len(merged))

	// Mine commentary for PO numbers invisible to the two paths above.
	mined := attribute.MineCommentPOs(projects)
	missing := attribute.MissingPONumbers(mined, reconcile.PONumbers(merged))
	if len(missing) > 0 {
		fetched, err := p.src.POsByNumber(ctx, missing)
		if err != nil {
			return fmt.Errorf("pull comment-referenced POs: %w", err)
		}
		if len(fetched) < len(missing) {
			// Not retried this run; the next refresh re-mines.
			log.Printf("[pipeline] recovered %d of %d comment-referenced POs",
				len(fetched), len(missing))
		}
		recovered := attribute.AttachRecovered(fetched, mined)
		merged = reconcile.MergePOs(merged, recovered)
	}

	if err := p.loader.ReplaceAll(ctx, projects, merged); err != nil {
		return fmt.Errorf("load projects and POs: %w", err)
	}

	wbsNodes, err := p.src.WBSNodeBudgets(ctx)
	if err != nil {
		return fmt.Errorf("pull WBS node budgets: %w", err)
	}
	if err := p.loader.ReplaceWBSNodes(ctx, wbsNodes, source.TrackedWBSNodes); err != nil {
		return fmt.Errorf("load WBS node budgets: %w", err)
	}

	if err := p.loader.RecordRefreshMetadata(ctx, p.collectFreshness(ctx)); err != nil {
		return fmt.Errorf("record refresh metadata: %w", err)
	}

	log.Printf("[pipeline] refresh complete in %s (%d projects, %d POs)",
		time.Since(started).Round(time.Millisecond), len(projects), len(merged))
	return nil
}

// collectFreshness queries each source's own last-modified timestamp. A
// failed lookup is recorded as Unknown rather than aborting the run.
func (p *Pipeline) collectFreshness(ctx context.Context) []domain.RefreshMetadata {
	refreshedAt := time.Now().UTC().Format("2006-01-02 15:04:05 UTC")

	keys := make([]string, 0, len(domain.SourceLabels))
	for key := range domain.SourceLabels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]domain.RefreshMetadata, 0, len(keys))
	for _, key := range keys {
		ts, err := p.src.Freshness(ctx, key)
		if err != nil || ts == "" {
			if err != nil {
				log.Printf("[pipeline] freshness lookup failed for %s: %v", key, err)
			}
			ts = domain.UnknownFreshness
		}
		rows = append(rows, domain.RefreshMetadata{
			SourceKey:            key,
			SourceLabel:          domain.SourceLabels[key],
			SourceLastUpdated:    ts,
			DashboardRefreshedAt: refreshedAt,
		})
	}
	return rows
}
