package config

import (
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/csvpull/pkg/domain/model"
	"github.com/m-mizutani/csvpull/pkg/domain/types"
)

// DefaultOutputDir is used when neither a flag nor a targets file names a directory
const DefaultOutputDir = "data"

// Fetch holds configuration of the fetch command
type Fetch struct {
	OutputDir           string
	Concurrency         int
	HTTPTimeout         time.Duration
	UserAgent           string
	Headers             []string
	StrictContentType   bool
	AlwaysRemoveArchive bool
	TargetsFile         string
}

// Header is an extra request header. The value is hidden from logs.
type Header struct {
	Name  string
	Value string `masq:"secret"`
}

// Flags returns CLI flags for fetch configuration
func (c *Fetch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "output-dir",
			Aliases:     []string{"o"},
			Usage:       "Directory to save archives and extracted CSV files",
			Value:       DefaultOutputDir,
			Destination: &c.OutputDir,
			Sources:     cli.EnvVars("CSVPULL_OUTPUT_DIR"),
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Aliases:     []string{"c"},
			Usage:       "Maximum number of concurrent downloads (0 means unlimited)",
			Value:       4,
			Destination: &c.Concurrency,
			Sources:     cli.EnvVars("CSVPULL_CONCURRENCY"),
		},
		&cli.DurationFlag{
			Name:        "http-timeout",
			Usage:       "Timeout of a single HTTP request including body (0 means no timeout)",
			Destination: &c.HTTPTimeout,
			Sources:     cli.EnvVars("CSVPULL_HTTP_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:        "user-agent",
			Usage:       "User-Agent header of requests",
			Destination: &c.UserAgent,
			Sources:     cli.EnvVars("CSVPULL_USER_AGENT"),
		},
		&cli.StringSliceFlag{
			Name:        "header",
			Usage:       "Extra request header in 'Key: Value' form (repeatable)",
			Destination: &c.Headers,
		},
		&cli.BoolFlag{
			Name:        "strict-content-type",
			Usage:       "Accept only exact ZIP media types instead of any Content-Type containing 'zip'",
			Destination: &c.StrictContentType,
			Sources:     cli.EnvVars("CSVPULL_STRICT_CONTENT_TYPE"),
		},
		&cli.BoolFlag{
			Name:        "always-remove-archive",
			Usage:       "Remove the archive even when it contains no CSV file",
			Destination: &c.AlwaysRemoveArchive,
			Sources:     cli.EnvVars("CSVPULL_ALWAYS_REMOVE_ARCHIVE"),
		},
		&cli.StringFlag{
			Name:        "targets",
			Aliases:     []string{"t"},
			Usage:       "TOML file listing targets",
			Destination: &c.TargetsFile,
			Sources:     cli.EnvVars("CSVPULL_TARGETS"),
		},
	}
}

// Validate checks values that flags alone cannot constrain
func (c *Fetch) Validate() error {
	if c.Concurrency < 0 {
		return goerr.New("concurrency must not be negative",
			goerr.V("concurrency", c.Concurrency),
			goerr.T(types.ErrTagInvalidTarget))
	}
	if c.HTTPTimeout < 0 {
		return goerr.New("http timeout must not be negative",
			goerr.V("timeout", c.HTTPTimeout),
			goerr.T(types.ErrTagInvalidTarget))
	}
	return nil
}

// ParseHeaders splits every "Key: Value" header argument
func (c *Fetch) ParseHeaders() ([]Header, error) {
	headers := make([]Header, 0, len(c.Headers))
	for _, raw := range c.Headers {
		name, value, ok := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, goerr.New("invalid header, expected 'Key: Value'",
				goerr.V("header", raw),
				goerr.T(types.ErrTagInvalidTarget))
		}
		headers = append(headers, Header{
			Name:  name,
			Value: strings.TrimSpace(value),
		})
	}
	return headers, nil
}

type targetsFile struct {
	OutputDir string        `toml:"output_dir"`
	Targets   []targetEntry `toml:"target"`
}

type targetEntry struct {
	URL       string `toml:"url"`
	OutputDir string `toml:"output_dir"`
}

// Targets merges positional URLs with the entries of the targets file.
// Positional URLs come first and use OutputDir. File entries without an
// output_dir use the file's top-level output_dir, then OutputDir.
func (c *Fetch) Targets(urls []string) ([]model.Target, error) {
	outputDir := c.OutputDir
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}

	targets := make([]model.Target, 0, len(urls))
	for _, u := range urls {
		targets = append(targets, model.Target{URL: u, OutputDir: outputDir})
	}

	if c.TargetsFile != "" {
		fromFile, err := loadTargetsFile(c.TargetsFile, outputDir)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fromFile...)
	}

	if len(targets) == 0 {
		return nil, goerr.New("no target given, pass URLs or --targets",
			goerr.T(types.ErrTagInvalidTarget))
	}
	return targets, nil
}

func loadTargetsFile(path, defaultDir string) ([]model.Target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read targets file",
			goerr.V("path", path),
			goerr.T(types.ErrTagFilesystem))
	}

	var file targetsFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse targets file",
			goerr.V("path", path),
			goerr.T(types.ErrTagInvalidTarget))
	}

	if file.OutputDir != "" {
		defaultDir = file.OutputDir
	}

	targets := make([]model.Target, 0, len(file.Targets))
	for i, entry := range file.Targets {
		if entry.URL == "" {
			return nil, goerr.New("target without url",
				goerr.V("path", path),
				goerr.V("index", i),
				goerr.T(types.ErrTagInvalidTarget))
		}
		dir := entry.OutputDir
		if dir == "" {
			dir = defaultDir
		}
		targets = append(targets, model.Target{URL: entry.URL, OutputDir: dir})
	}
	return targets, nil
}
