// Package services implements the business logic layer between the HTTP
// handlers and the analysis core.
//
// AnalysisService resolves sessions, runs the parse and analysis pipeline on
// them, and takes care of the cross-cutting work around each operation:
// structured logging, OpenTelemetry metrics, WebSocket events and registry
// snapshots. Handlers never touch a session directly.
//
// HealthService reports liveness, readiness and version information.
//
// Services take their collaborators through their constructors and accept a
// context.Context on every call so trace ids flow into logs and events.
package services
