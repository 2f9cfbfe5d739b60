package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/config"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/iftikad"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/sheets"
)

type outreachReader interface {
	Weeks(ctx context.Context) ([]string, error)
	AbsenteesForWeek(ctx context.Context, week string) ([]iftikad.Absentee, error)
	AbsenceHistory(ctx context.Context, name string) ([]iftikad.HistoryEntry, error)
}

type command struct {
	weeks   bool
	week    string
	latest  bool
	history string
}

func (c command) valid() bool {
	n := 0
	for _, set := range []bool{c.weeks, c.week != "", c.latest, c.history != ""} {
		if set {
			n++
		}
	}
	return n == 1
}

func main() {
	verbose := flag.Bool("v", false, "Verbose logging")
	configFile := flag.String("config", "khoras.toml", "Path to the TOML config file")
	var cmd command
	flag.BoolVar(&cmd.weeks, "weeks", false, "List the week columns")
	flag.StringVar(&cmd.week, "week", "", "Print the absentees of a week")
	flag.BoolVar(&cmd.latest, "latest", false, "Print the absentees of the latest week")
	flag.StringVar(&cmd.history, "history", "", "Print the absence history of a member")

	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	if !cmd.valid() {
		log.Error("You must specify exactly one of -weeks, -week, -latest or -history")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := sheets.NewSheetClient(ctx, cfg.Credentials(), cfg.SpreadsheetID,
		sheets.WithRetryPolicy(cfg.RetryPolicy()),
	)
	if err != nil {
		log.Fatalf("Failed to create Sheets client: %v", err)
	}
	reconciler := iftikad.NewReconciler(client, iftikad.Options{
		Tables:   cfg.Tables,
		Labels:   cfg.Labels,
		Location: cfg.Location(),
	})

	if err := run(ctx, os.Stdout, reconciler, cmd); err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}

func run(ctx context.Context, out io.Writer, svc outreachReader, cmd command) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	switch {
	case cmd.weeks:
		weeks, err := svc.Weeks(ctx)
		if err != nil {
			return err
		}
		for _, w := range weeks {
			fmt.Fprintln(tw, w)
		}
	case cmd.history != "":
		history, err := svc.AbsenceHistory(ctx, cmd.history)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "WEEK\tCALLED\tCALL DATE\tNOTES")
		for _, h := range history {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.Week, h.Called, h.CallDate, h.Notes)
		}
	default:
		absentees, err := svc.AbsenteesForWeek(ctx, cmd.week)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "NAME\tPHONE\tWEEK\tCALLED\tCALL DATE\tNOTES")
		for _, a := range absentees {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.Name, a.Phone, a.Week, a.Called, a.CallDate, a.Notes)
		}
	}
	return nil
}
