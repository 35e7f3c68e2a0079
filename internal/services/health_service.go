package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"metrolog/internal/snapshot"
	"metrolog/pkg/contracts"
)

// SessionCounter reports how many analysis sessions are live.
type SessionCounter interface {
	Len() int
}

// ClientCounter reports how many dashboards are connected.
type ClientCounter interface {
	ClientCount() int
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	RepoURL   string
	BuildTime string
	BuildID   string
}

// HealthService provides health check functionality
type HealthService struct {
	build     BuildInfo
	sessions  SessionCounter
	clients   ClientCounter
	snapshots snapshot.Store
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	Sessions         int     `json:"sessions"`
	WebSocketClients int     `json:"websocket_clients"`
	Snapshots        int     `json:"snapshots"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a health service. clients and snapshots may be nil.
func NewHealthService(build BuildInfo, sessions SessionCounter, clients ClientCounter, snapshots snapshot.Store, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "health_service"))

	logger.Info("health service initialized",
		slog.String("version", build.Version),
		slog.String("build_time", build.BuildTime),
		slog.String("build_id", build.BuildID))

	return &HealthService{
		build:     build,
		sessions:  sessions,
		clients:   clients,
		snapshots: snapshots,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Services: map[string]interface{}{
			"sessions":  hs.checkSessions(),
			"websocket": hs.checkWebSocket(),
			"snapshots": hs.checkSnapshots(ctx),
		},
	}

	for name, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status == "not_ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "dependency not ready",
				slog.String("service", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":         hs.build.Version,
		"api_version":     contracts.APIVersion,
		"document_format": contracts.DocumentFormat,
		"go_version":      runtime.Version(),
		"os":              runtime.GOOS,
		"arch":            runtime.GOARCH,
		"uptime":          time.Since(hs.startTime).Seconds(),
		"start_time":      hs.startTime.Format(time.RFC3339),
		"current_time":    time.Now().Format(time.RFC3339),
	}
	if hs.build.RepoURL != "" {
		result["repo_url"] = hs.build.RepoURL
	}
	if hs.build.BuildTime != "" {
		result["build_time"] = hs.build.BuildTime
	}
	if hs.build.BuildID != "" {
		result["build_id"] = hs.build.BuildID
	}
	return result
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		Snapshots:     -1,
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
	if hs.sessions != nil {
		stats.Sessions = hs.sessions.Len()
	}
	if hs.clients != nil {
		stats.WebSocketClients = hs.clients.ClientCount()
	}
	if hs.snapshots != nil {
		if list, err := hs.snapshots.List(ctx); err == nil {
			stats.Snapshots = len(list)
		}
	}
	return stats
}

func (hs *HealthService) checkSessions() ServiceHealth {
	if hs.sessions == nil {
		return ServiceHealth{Status: "not_ready", Message: "session manager not initialized"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d live sessions", hs.sessions.Len()),
	}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{Status: "disabled"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d connected clients", hs.clients.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// checkSnapshots lists the store, which exercises its credentials and reachability.
func (hs *HealthService) checkSnapshots(ctx context.Context) ServiceHealth {
	if hs.snapshots == nil {
		return ServiceHealth{Status: "disabled"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := hs.snapshots.List(ctx); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("snapshot store unavailable: %v", err),
		}
	}
	return ServiceHealth{Status: "ready"}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"version":   hs.Version(),
		"stats":     hs.SystemStats(ctx),
	}
}
