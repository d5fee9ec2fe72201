package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/csvpull/pkg/cli/config"
	"github.com/m-mizutani/csvpull/pkg/domain/model"
	"github.com/m-mizutani/csvpull/pkg/domain/types"
	"github.com/m-mizutani/csvpull/pkg/usecase"
	"github.com/m-mizutani/csvpull/pkg/utils/report"
)

func cmdExtract() *cli.Command {
	var extractCfg config.Extract

	return &cli.Command{
		Name:      "extract",
		Aliases:   []string{"x"},
		Usage:     "Extract CSV files from a local ZIP archive",
		ArgsUsage: "ARCHIVE",
		Flags:     extractCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return goerr.New("exactly one archive path is required",
					goerr.V("args", c.Args().Slice()),
					goerr.T(types.ErrTagInvalidTarget))
			}

			extractor := usecase.NewExtractor(usecase.WithAlwaysRemoveArchive(extractCfg.AlwaysRemoveArchive))
			req := &model.ExtractionRequest{
				ArchivePath: c.Args().First(),
				OutputDir:   extractCfg.OutputDir,
			}
			w := c.Root().Writer

			return report.Separate(w, "=", func() error {
				return report.MeasureTime(w, "extract", func() error {
					result, err := extractor.Extract(ctx, req)
					if err != nil {
						return err
					}

					fmt.Fprintf(w, "%s: extracted %d file(s) into %s\n", req.ArchivePath, result.Count(), req.OutputDir)
					for _, f := range result.Files {
						fmt.Fprintf(w, "  %s\n", f)
					}
					return nil
				})
			})
		},
	}
}
