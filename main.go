package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/api"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/config"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/iftikad"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/roster"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/sheets"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose logging")
	configFile := flag.String("config", "khoras.toml", "Path to the TOML config file")

	flag.Parse()
	if *verbose {
		// Set the log level to debug
		log.SetLevel(log.DebugLevel)
	}
	// Set the log format to include a leading timestamp in ISO8601 format
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, err := sheets.NewSheetClient(context.Background(), cfg.Credentials(), cfg.SpreadsheetID,
		sheets.WithRetryPolicy(cfg.RetryPolicy()),
		sheets.WithRequestsPerMinute(cfg.RequestsPerMinute),
	)
	if err != nil {
		log.Fatalf("Failed to create Sheets client: %v", err)
	}

	cache := roster.NewCache(client, cfg.Tables.Roster, cfg.Tables.RosterRange, roster.WithTTL(cfg.CacheTTLDuration()))
	reconciler := iftikad.NewReconciler(client, iftikad.Options{
		Tables:   cfg.Tables,
		Labels:   cfg.Labels,
		Location: cfg.Location(),
	})
	router := api.GetRouter(api.NewHandler(roster.NewScorer(client, cache), reconciler))
	go startServer(cfg.ListenAddress, router)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// In all cases, just exit and let the container restart from scratch.
	// There's less to get wrong doing it this way.
	<-signalChan
	log.Info("Signalled, shutting down")
}

func startServer(addr string, router http.Handler) {
	server := http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
	}
	log.Infof("listening for HTTP on: %s", server.Addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("ListenAndServe: %v", err)
	}
}
