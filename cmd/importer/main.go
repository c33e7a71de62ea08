package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/jack2012aa/breeding-db-sub000/internal/factory"
	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/reader"
	"github.com/jack2012aa/breeding-db-sub000/internal/reconcile"
	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/repository"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
	"github.com/jack2012aa/breeding-db-sub000/internal/service"
	"github.com/jack2012aa/breeding-db-sub000/pkg/config"
	"github.com/jack2012aa/breeding-db-sub000/pkg/database"
	apperrors "github.com/jack2012aa/breeding-db-sub000/pkg/errors"
	"github.com/jack2012aa/breeding-db-sub000/pkg/logger"
)

func main() {
	input := pflag.StringP("input", "i", "", "spreadsheet to import (.xlsx or .csv)")
	farm := pflag.String("farm", "", "farm the batch belongs to (overrides IMPORT_FARM)")
	reportDir := pflag.String("report-dir", "", "directory for rejection reports (overrides REPORTS_DIR)")
	resolve := pflag.String("resolve", "reject", "ambiguity policy when not interactive: reject or nearest")
	interactive := pflag.Bool("interactive", false, "prompt on ambiguous identifiers and conflicting records")
	dryRun := pflag.Bool("dry-run", false, "parse the workbook without touching the database")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *farm != "" {
		cfg.Import.Farm = *farm
	}
	if *reportDir != "" {
		cfg.Reports.Dir = *reportDir
	}
	if *interactive {
		cfg.Import.Interactive = true
	}
	if *dryRun {
		cfg.Import.DryRun = true
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	animals := repository.NewAnimalRepository(db)
	estrus := repository.NewEstrusRepository(db)
	matings := repository.NewMatingRepository(db)
	farrowings := repository.NewFarrowingRepository(db)
	weanings := repository.NewWeaningRepository(db)
	individuals := repository.NewIndividualRepository(db)

	res := resolver.New(animals, logr)
	decider := buildDecider(cfg, *resolve)
	stores := reconcile.NewStores(animals, estrus, matings, farrowings, weanings, individuals)
	engine := reconcile.New(stores, decider, cfg.Policy, logr)
	collector := report.NewCollector(logr)

	fcfg := factory.Config{
		Farm:         cfg.Import.Farm,
		DateFormats:  cfg.Import.DateFormats,
		DefaultBreed: cfg.Import.DefaultBreed,
		Policy:       cfg.Policy,
	}
	opts := reader.Options{Sink: collector, Logger: logr, RetryPasses: cfg.Import.RetryPasses}

	readers := service.Readers{
		Animals:     reader.NewAnimalReader(fcfg, res, animals, engine, decider, opts),
		Estrus:      reader.NewEstrusReader(fcfg, res, engine, decider, opts),
		Matings:     reader.NewMatingReader(fcfg, res, estrus, engine, decider, opts),
		Farrowings:  reader.NewFarrowingReader(fcfg, res, estrus, engine, decider, opts),
		Weanings:    reader.NewWeaningReader(fcfg, res, farrowings, engine, decider, opts),
		Individuals: reader.NewIndividualReader(fcfg, res, farrowings, weanings, engine, decider, opts),
	}

	svc := service.NewImportService(readers, collector, cfg.Reports, logr)
	summary, err := svc.Run(context.Background(), service.ImportRequest{
		Input:     *input,
		Farm:      cfg.Import.Farm,
		ReportDir: cfg.Reports.Dir,
		DryRun:    cfg.Import.DryRun,
	})
	if err != nil {
		logr.Sugar().Fatalw("import failed",
			"code", apperrors.FromError(err).Code,
			"error", err,
		)
	}

	logr.Sugar().Infow("import complete",
		"sheets", len(summary.Tallies),
		"rejected", summary.Rejected,
		"reports", summary.ReportFiles,
	)
}

// buildDecider picks the decision policy for the run. Interactive wins;
// otherwise "nearest" favors the most recent holder of a recycled tag
// and anything else rejects to the report. Resolver queries bound their
// candidates by the row's own date through AsOf, so every candidate
// precedes the row and the one born nearest to now is the newest holder.
func buildDecider(cfg *config.Config, resolve string) resolver.Decider {
	if cfg.Import.Interactive {
		return &stdinDecider{in: bufio.NewScanner(os.Stdin), out: os.Stdout}
	}
	if resolve == "nearest" {
		return resolver.NearestBirth{Reference: time.Now()}
	}
	return resolver.AutoReject{}
}

// stdinDecider prompts the operator on the terminal.
type stdinDecider struct {
	in  *bufio.Scanner
	out io.Writer
}

func (d *stdinDecider) Choose(_ context.Context, candidates []models.Animal) (int, error) {
	fmt.Fprintln(d.out, "identifier matches several animals:")
	for i, a := range candidates {
		gender := "?"
		if a.Gender != nil {
			gender = a.Gender.String()
		}
		fmt.Fprintf(d.out, "  [%d] %s %s born %s (%s)\n",
			i+1, a.Breed, a.Tag, a.BirthDate.Format(time.DateOnly), gender)
	}
	fmt.Fprint(d.out, "pick a number, or press enter to skip: ")
	if !d.in.Scan() {
		return -1, d.in.Err()
	}
	n, err := strconv.Atoi(strings.TrimSpace(d.in.Text()))
	if err != nil || n < 1 || n > len(candidates) {
		return -1, nil
	}
	return n - 1, nil
}

func (d *stdinDecider) Confirm(_ context.Context, change string) (bool, error) {
	fmt.Fprintf(d.out, "%s. apply? [y/N] ", change)
	if !d.in.Scan() {
		return false, d.in.Err()
	}
	answer := strings.ToLower(strings.TrimSpace(d.in.Text()))
	return answer == "y" || answer == "yes", nil
}
