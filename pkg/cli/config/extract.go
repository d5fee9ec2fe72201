package config

import "github.com/urfave/cli/v3"

// Extract holds configuration of the extract command
type Extract struct {
	OutputDir           string
	AlwaysRemoveArchive bool
}

// Flags returns CLI flags for extract configuration
func (c *Extract) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "output-dir",
			Aliases:     []string{"o"},
			Usage:       "Directory to write extracted CSV files",
			Value:       ".",
			Destination: &c.OutputDir,
		},
		&cli.BoolFlag{
			Name:        "always-remove-archive",
			Usage:       "Remove the archive even when it contains no CSV file",
			Destination: &c.AlwaysRemoveArchive,
		},
	}
}
