package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/csvpull/pkg/cli/config"
	"github.com/m-mizutani/csvpull/pkg/domain/interfaces"
	"github.com/m-mizutani/csvpull/pkg/domain/model"
	"github.com/m-mizutani/csvpull/pkg/infra/httpclient"
	"github.com/m-mizutani/csvpull/pkg/usecase"
	"github.com/m-mizutani/csvpull/pkg/utils/logging"
	"github.com/m-mizutani/csvpull/pkg/utils/report"
)

func cmdFetch() *cli.Command {
	var fetchCfg config.Fetch

	return &cli.Command{
		Name:      "fetch",
		Aliases:   []string{"f"},
		Usage:     "Download ZIP archives and extract their CSV files",
		ArgsUsage: "[URL...]",
		Flags:     fetchCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			if err := fetchCfg.Validate(); err != nil {
				return err
			}

			targets, err := fetchCfg.Targets(c.Args().Slice())
			if err != nil {
				return err
			}

			headers, err := fetchCfg.ParseHeaders()
			if err != nil {
				return err
			}

			logger.Debug("Fetch configured",
				slog.Int("targets", len(targets)),
				slog.Int("concurrency", fetchCfg.Concurrency),
				slog.Any("headers", headers),
			)

			fetcher := newFetcher(&fetchCfg, headers)
			w := c.Root().Writer

			if len(targets) == 1 {
				return fetchOne(ctx, w, fetcher, targets[0])
			}
			return fetchMany(ctx, w, fetcher, targets, fetchCfg.Concurrency)
		},
	}
}

func newFetcher(cfg *config.Fetch, headers []config.Header) interfaces.Fetcher {
	clientOpts := []httpclient.Option{
		httpclient.WithTimeout(cfg.HTTPTimeout),
	}
	if cfg.UserAgent != "" {
		clientOpts = append(clientOpts, httpclient.WithUserAgent(cfg.UserAgent))
	}
	for _, h := range headers {
		clientOpts = append(clientOpts, httpclient.WithHeader(h.Name, h.Value))
	}

	return usecase.NewFetcher(
		httpclient.NewClient(clientOpts...),
		usecase.NewExtractor(usecase.WithAlwaysRemoveArchive(cfg.AlwaysRemoveArchive)),
		usecase.WithStrictContentType(cfg.StrictContentType),
	)
}

// fetchOne runs a single fetch on the calling goroutine
func fetchOne(ctx context.Context, w io.Writer, fetcher interfaces.Fetcher, target model.Target) error {
	return report.Separate(w, "=", func() error {
		return report.MeasureTime(w, "fetch", func() error {
			result, err := fetcher.Fetch(ctx, target)
			if err != nil {
				return err
			}
			writeResult(w, result)
			return nil
		})
	})
}

// fetchMany runs all fetches concurrently and prints each one as it finishes
func fetchMany(ctx context.Context, w io.Writer, fetcher interfaces.Fetcher, targets []model.Target, concurrency int) error {
	logger := logging.From(ctx)
	var mu sync.Mutex

	var failed int
	elapsed, _ := report.Elapsed(func() error {
		usecase.FetchAll(ctx, fetcher, targets, concurrency, func(r *model.FetchReport) {
			mu.Lock()
			defer mu.Unlock()

			_ = report.Separate(w, "=", func() error {
				if r.Err != nil {
					failed++
					logger.Error("Failed to fetch", slog.String("url", r.Target.URL), slog.Any("error", r.Err))
					fmt.Fprintf(w, "%s: failed: %v\n", r.Target.URL, r.Err)
				} else {
					writeResult(w, r.Result)
				}
				fmt.Fprintf(w, "fetch has been executed in %s ms\n", report.FormatMillis(r.Elapsed))
				return nil
			})
		})
		return nil
	})

	fmt.Fprintf(w, "%d of %d targets fetched in %s ms\n", len(targets)-failed, len(targets), report.FormatMillis(elapsed))

	if failed > 0 {
		return goerr.New("some targets failed",
			goerr.V("failed", failed),
			goerr.V("total", len(targets)))
	}
	return nil
}

func writeResult(w io.Writer, result *model.FetchResult) {
	switch result.Status {
	case model.FetchStatusExtracted:
		fmt.Fprintf(w, "%s: extracted %d file(s) into %s\n", result.Target.URL, result.Extract.Count(), result.Target.OutputDir)
		for _, f := range result.Extract.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	case model.FetchStatusBadStatus:
		fmt.Fprintf(w, "%s: skipped, HTTP status %d\n", result.Target.URL, result.StatusCode)
	case model.FetchStatusWrongContentType:
		fmt.Fprintf(w, "%s: skipped, content type %q is not a ZIP archive\n", result.Target.URL, result.ContentType)
	case model.FetchStatusNoMatchingEntries:
		action := "kept"
		if result.Extract != nil && result.Extract.ArchiveRemoved {
			action = "removed"
		}
		fmt.Fprintf(w, "%s: no CSV file in archive, %s %s\n", result.Target.URL, action, result.ArchivePath)
	}
}
