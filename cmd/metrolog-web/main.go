// Command metrolog-web serves the metrolog HTTP API and websocket event
// stream. With -static it also serves a built dashboard bundle.
package main

import (
	"flag"
	"io/fs"
	"log/slog"
	"os"

	"metrolog/internal/app"
)

func main() {
	staticDir := flag.String("static", "", "directory of the dashboard bundle to serve at /")
	flag.Parse()

	var frontendFS fs.FS
	if *staticDir != "" {
		if info, err := os.Stat(*staticDir); err != nil || !info.IsDir() {
			slog.Error("dashboard directory not found", slog.String("path", *staticDir))
			os.Exit(1)
		}
		frontendFS = os.DirFS(*staticDir)
	}

	application, err := app.NewApplication(frontendFS)
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
