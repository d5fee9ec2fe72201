package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/csvpull/pkg/domain/interfaces"
	"github.com/m-mizutani/csvpull/pkg/domain/model"
	"github.com/m-mizutani/csvpull/pkg/utils/async"
	"github.com/m-mizutani/csvpull/pkg/utils/logging"
)

// FetchAll runs f.Fetch for every target with at most concurrency fetches in
// flight (concurrency <= 0 means unbounded). Each fetch is sequential on its
// own; a failing fetch does not stop the others. Reports are returned in the
// order of targets. onDone, if given, is called as each fetch finishes and
// may be called from several goroutines at once.
func FetchAll(ctx context.Context, f interfaces.Fetcher, targets []model.Target, concurrency int, onDone func(report *model.FetchReport)) []*model.FetchReport {
	logger := logging.From(ctx)
	reports := make([]*model.FetchReport, len(targets))

	logger.Debug("Starting concurrent fetch",
		"targets", len(targets),
		"concurrency", concurrency,
	)

	_ = async.Dispatch(ctx, concurrency, targets,
		func(ctx context.Context, idx int, target model.Target) error {
			report := &model.FetchReport{Target: target}
			reports[idx] = report

			start := time.Now()
			report.Result, report.Err = f.Fetch(ctx, target)
			report.Elapsed = time.Since(start)
			return report.Err
		},
		func(idx int, err error) {
			report := reports[idx]
			if report == nil {
				report = &model.FetchReport{Target: targets[idx]}
				reports[idx] = report
			}
			if report.Err == nil && err != nil {
				report.Err = err
			}
			if onDone != nil {
				onDone(report)
			}
		},
	)

	return reports
}
