package config

import (
	"time"

	"plotpilot/pkg/contracts"
)

// Application constants
const (
	AppName    = "plotpilot"
	AppVersion = contracts.Version

	DefaultMaxUploadBytes = 32 << 20
	DefaultMaxRows        = 100000
	DefaultMaxColumns     = 500
	DefaultPreviewRows    = 5

	DefaultSessionTTL    = 2 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
	DefaultMaxSessions   = 1000

	ExportFileMode = 0644
	ExportDirMode  = 0755
)
