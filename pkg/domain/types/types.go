package types

import "github.com/m-mizutani/goerr/v2"

// Version is the application version reported by the CLI
var Version = "dev"

// AppName is used for the CLI name, env var prefix and default user agent
const AppName = "csvpull"

var (
	// ErrTagArchiveCorrupt marks archives that cannot be opened or whose entries cannot be read
	ErrTagArchiveCorrupt = goerr.NewTag("archive_corrupt")

	// ErrTagFilesystem marks failures creating directories, writing or removing files
	ErrTagFilesystem = goerr.NewTag("filesystem")

	// ErrTagNetwork marks transport level failures (DNS, connection reset, timeout)
	ErrTagNetwork = goerr.NewTag("network")

	// ErrTagInvalidTarget marks targets that cannot be requested at all
	ErrTagInvalidTarget = goerr.NewTag("invalid_target")
)
