// Package app wires the metrolog web service together and runs it.
//
// # Initialization Flow
//
//  1. Load configuration from the environment and an optional config.yaml
//  2. Resolve paths and initialize logging and OpenTelemetry
//  3. Open the snapshot store (local directory or S3 bucket)
//  4. Start the websocket hub and create the session manager
//  5. Build the analysis and health services
//  6. Mount middleware and handlers on a chi router
//  7. Serve until SIGINT or SIGTERM, then shut down gracefully
//
// # Usage
//
//	application, err := app.NewApplication(nil)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Tests build an Application with New and a config.Default() tuned to a
// temporary directory.
//
// # Error Handling
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
