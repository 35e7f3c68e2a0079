// Package http implements the HTTP handlers of the metrolog web service.
// Handlers stay thin: they decode and validate requests, call the analysis
// service and render its results.
//
// # Routes
//
//	/api/health            liveness, readiness and runtime stats
//	/api/version           build information
//	/api/registry          registry document schema, GPS catalog, snapshots
//	/api/sessions          session lifecycle
//	/api/sessions/{id}/... measurements, statistics, registry, groups,
//	                       angular and positional views, batch comparison
//	/api/client-log        dashboard log relay
//
// # Responses
//
// Successful JSON responses share one envelope:
//
//	{"status": "success", "data": ..., "count": 3}
//
// Downloads (measurement TSV/CSV/Arrow, statistics CSV, registry exports)
// are written as attachments. Errors are RFC 7807 problem documents
// rendered by errors.ErrorHandler:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Validation Error",
//	    "status": 400,
//	    "detail": "[VALIDATION] slot: unknown slot",
//	    "instance": "/api/sessions/4f.../registry/Rayon%20ANG1/angular"
//	}
//
// # Testing
//
// Handlers are tested with httptest against the real AnalysisService, so
// parsing, registry and statistics run end to end.
package http
