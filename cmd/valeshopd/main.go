package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"valeshop/internal/app"
)

func main() {
	// Optional .env for local development; real deployments set VALE_* vars.
	_ = godotenv.Load()

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
