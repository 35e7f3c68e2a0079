package config

// Application constants for the metrology dashboard
const (
	// Application Info
	AppName = "Metrolog"

	// Analysis defaults
	DefaultComparisonPrefix    = "Cire_"
	DefaultLabelA              = "Métal"
	DefaultLabelB              = "Cire"
	DefaultComparisonThreshold = 0.05
	DefaultSlotCount           = 12
	DefaultMaxUploadBytes      = 32 << 20

	// Bounds policies understood by the statistics engine
	BoundsPolicyStrict   = "strict"
	BoundsPolicyFirstRow = "first_row"

	// Snapshot backends
	SnapshotBackendFile = "file"
	SnapshotBackendS3   = "s3"
	SnapshotBackendNone = "none"

	// File Paths (relative to executable)
	DefaultDataDir     = "data"
	DefaultSnapshotDir = "data/snapshots"
	DefaultLogsDir     = "logs"

	// API Endpoints
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
