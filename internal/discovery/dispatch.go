package discovery

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/internal/store"
)

// stepResearching researches one batch of pending companies concurrently.
// Every batch member is persisted and linked to the run before research
// starts, so a company that later fails still has a store record. Each
// company gets its own timeout and fails independently; a failed company
// is marked and skipped by later phases, never retried within the run,
// and never aborts its batch siblings.
func (c *Coordinator) stepResearching(ctx context.Context, run *model.DiscoveryRun) error {
	pending := run.PendingCompanies()
	if len(pending) == 0 {
		run.Phase = model.DiscoveryAnalyzing
		return nil
	}

	batchSize := run.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	if len(pending) > batchSize {
		pending = pending[:batchSize]
	}

	timeout := time.Duration(c.cfg.Discovery.ResearchTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("researching batch", zap.Int("batch", len(pending)))

	companies := make([]*store.Company, len(pending))
	for i := range pending {
		co, err := c.store.GetOrCreateCompany(ctx, run.ProfileID, pending[i].Name)
		if err != nil {
			return err
		}
		if err := c.store.LinkDiscovery(ctx, run.ID, co.ID, pending[i].SourceQuery, pending[i].Snippet, pending[i].Rank); err != nil {
			return err
		}
		pending[i].CompanyID = co.ID
		companies[i] = co
	}

	var completed, failed atomic.Int64
	results := make([]model.DiscoveredCompany, len(pending))
	apiCalls := make([]int, len(pending))

	g := new(errgroup.Group)
	g.SetLimit(batchSize)
	for i, company := range pending {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			outcome := company
			rr, err := c.researchOne(cctx, run, company)
			if err != nil {
				log.Warn("company research failed",
					zap.String("company", company.Name),
					zap.Error(err))
				outcome.ResearchFailed = true
				co := companies[i]
				co.Status = "failed"
				if uerr := c.store.UpdateCompany(ctx, co); uerr != nil {
					log.Warn("marking company failed",
						zap.String("company_id", co.ID),
						zap.Error(uerr))
				}
				failed.Add(1)
			} else {
				outcome.ResearchComplete = true
				apiCalls[i] = rr.APICalls
				completed.Add(1)
			}
			results[i] = outcome
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	run.Companies = model.MergeCompanies(run.Companies, results)
	for _, n := range apiCalls {
		run.APICalls += n
	}
	run.Researched = 0
	for _, company := range run.Companies {
		if company.ResearchComplete {
			run.Researched++
		}
	}

	for _, outcome := range results {
		if !outcome.ResearchComplete {
			run.AddError("researching: " + outcome.Name + " failed")
		}
	}

	log.Info("batch done",
		zap.Int64("completed", completed.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Int("researched_total", run.Researched))
	return nil
}

func (c *Coordinator) researchOne(ctx context.Context, run *model.DiscoveryRun, company model.DiscoveredCompany) (*model.ResearchRun, error) {
	rr, err := c.research.Start(ctx, run.ProfileID, company.Name)
	if err != nil {
		return nil, err
	}
	rr.CompanyID = company.CompanyID
	if err := c.research.Run(ctx, rr); err != nil {
		return nil, err
	}
	return rr, nil
}
