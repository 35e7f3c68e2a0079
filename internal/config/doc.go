// Package config loads the service configuration.
//
// Values come from three sources, in order of precedence:
//
//  1. Environment variables prefixed with METROLOG_
//  2. An optional YAML file (METROLOG_CONFIG_FILE, ./config.yaml or ./configs/config.yaml)
//  3. The defaults declared in the struct tags
//
// Variable names follow the struct nesting, for example:
//
//	METROLOG_SERVER_PORT=8080
//	METROLOG_ANALYSIS_COMPARISON_PREFIX=Cire_
//	METROLOG_ANALYSIS_BOUNDS_POLICY=first_row
//	METROLOG_SESSION_IDLE_TTL=30m
//	METROLOG_SNAPSHOT_BACKEND=s3
//	METROLOG_SNAPSHOT_BUCKET=metrology-registry
//
// Relative paths are anchored at the executable directory by ResolvePaths.
package config
