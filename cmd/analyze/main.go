// Command analyze prints the insights for a ledger directory as JSON, and
// turns at-rest encryption of that directory on or off.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"budgetinsights/internal/config"
	apphttp "budgetinsights/internal/http"
	"budgetinsights/internal/logging"
	"budgetinsights/internal/models"
	"budgetinsights/internal/services/analyzer"
	"budgetinsights/internal/services/dataloader"
	"budgetinsights/internal/services/storage"
	"budgetinsights/internal/version"
)

var sections = []string{"all", "recurring", "upcoming", "runway", "forecast", "health", "alerts", "goals"}

// readPassphrase prompts on the terminal unless BUDGET_PASSPHRASE is set
var readPassphrase = func(prompt string) (string, error) {
	if p := os.Getenv("BUDGET_PASSPHRASE"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("ledger is encrypted: set BUDGET_PASSPHRASE or run from a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var clock = time.Now

// workFactor overrides the scrypt cost when non-zero
var workFactor int

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data", "", "Ledger directory (default from config)")
	nowStr := fs.String("now", "", "Reference date YYYY-MM-DD (default today)")
	section := fs.String("section", "all", "Output section: "+strings.Join(sections, ", "))
	encrypt := fs.Bool("encrypt", false, "Encrypt the ledger directory with a passphrase")
	decrypt := fs.Bool("decrypt", false, "Decrypt the ledger directory")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.Get().String())
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *dataDir != "" {
		cfg.DataDirectory = *dataDir
	}

	logger := logging.NewWithOutput(stderr, cfg.LogLevel, cfg.LogFormat)
	logger.WithFields(logrus.Fields{
		"data_dir": cfg.DataDirectory,
		"version":  version.Get().Version,
	}).Debug("Starting analysis")

	store, err := storage.New(cfg.DataDirectory, logging.Component(logger, "storage"))
	if err != nil {
		fmt.Fprintf(stderr, "storage: %v\n", err)
		return 1
	}
	if workFactor > 0 {
		store.SetWorkFactor(workFactor)
	}

	switch {
	case *encrypt && *decrypt:
		fmt.Fprintln(stderr, "-encrypt and -decrypt are mutually exclusive")
		return 2
	case *encrypt:
		return toggleEncryption(store, true, stdout, stderr)
	case *decrypt:
		return toggleEncryption(store, false, stdout, stderr)
	}

	if !validSection(*section) {
		fmt.Fprintf(stderr, "unknown section %q\n", *section)
		return 2
	}

	now, err := apphttp.ParseNow(*nowStr, clock)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	if store.IsEncrypted() {
		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		if err := store.Unlock(pass); err != nil {
			fmt.Fprintf(stderr, "unlock: %v\n", err)
			return 1
		}
	}

	snap, err := dataloader.New(store, logging.Component(logger, "loader")).Load()
	if err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return 1
	}

	svc := analyzer.New(cfg.Analysis.Settings(), logging.Component(logger, "analyzer"))
	result, err := svc.Analyze(*snap, now)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pick(result, *section)); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}

func toggleEncryption(store *storage.Storage, on bool, stdout, stderr io.Writer) int {
	pass, err := readPassphrase("Passphrase: ")
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	if on {
		err = store.EnableEncryption(pass)
	} else {
		err = store.DisableEncryption(pass)
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	state := "decrypted"
	if on {
		state = "encrypted"
	}
	fmt.Fprintf(stdout, "%s: %s\n", store.BaseDir(), state)
	return 0
}

func validSection(s string) bool {
	for _, known := range sections {
		if s == known {
			return true
		}
	}
	return false
}

func pick(r *models.AnalyticsResult, section string) interface{} {
	switch section {
	case "recurring":
		return r.Recurring
	case "upcoming":
		return r.Upcoming
	case "runway":
		return r.Runway
	case "forecast":
		return r.Forecast
	case "health":
		return r.Health
	case "alerts":
		return r.Alerts
	case "goals":
		return r.Goals
	}
	return r
}
