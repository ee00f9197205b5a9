package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"plotpilot/internal/app"
	"plotpilot/internal/config"
	"plotpilot/internal/infrastructure"
	"plotpilot/pkg/contracts"
)

func main() {
	configFile := flag.String("config", "", "YAML configuration file (defaults to $PLOTPILOT_CONFIG_FILE or config.yaml)")
	openBrowser := flag.Bool("open", false, "open the front end in the default browser once the server is ready")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionString())
		return
	}

	var (
		cfg *config.Config
		err error
	)
	if *configFile != "" {
		cfg, err = config.LoadFrom(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *openBrowser {
		go application.OpenBrowser(ctx)
	}

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
