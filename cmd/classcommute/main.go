package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/classcommute/internal/common/config"
	"github.com/classcommute/internal/common/db"
	"github.com/classcommute/internal/common/logger"
	"github.com/classcommute/internal/common/maintenance"
	"github.com/classcommute/internal/console"
	"github.com/classcommute/internal/mail"
	"github.com/classcommute/internal/reference"
	"github.com/classcommute/internal/reference/store"
	"github.com/classcommute/internal/roster"
	"github.com/classcommute/pkg/commute/models"
)

const usage = `Usage: classcommute <command> [flags]

Commands:
  check     plan a trip to class and optionally notify the professor (default)
  import    copy the JSON reference files and roster into the SQL store
  stations  list known stations, optionally filtered with -q

Run "classcommute <command> -h" for the flags of a command.
`

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cmd, args := "check", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "check":
		err = runCheck(args)
	case "import":
		err = runImport(args)
	case "stations":
		err = runStations(args)
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app is what every command needs after configuration is read.
type app struct {
	cfg *config.Config
	log logger.Logger
}

func setup(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	loggerConfig := logger.DefaultLoggerConfig()
	loggerConfig.Level = logger.ParseLogLevel(cfg.Logging.Level)
	loggerConfig.Console = cfg.Logging.Console
	loggerConfig.FilePath = cfg.Logging.FilePath
	loggerConfig.File = cfg.Logging.FilePath != ""
	log := logger.FromConfig(loggerConfig)

	log.Debug("Configuration loaded",
		"data_dir", cfg.Data.Dir,
		"data_source", cfg.Data.Source,
		"store_driver", cfg.Store.Driver,
		"delay_penalty", cfg.Planner.DelayPenaltyMinutes,
	)
	return &app{cfg: cfg, log: log}, nil
}

// loadFiles reads the reference tables and the roster from the data
// directory. A roster error is returned alongside whatever students loaded
// before it.
func (a *app) loadFiles() (*reference.Data, []models.Student, error) {
	ref := reference.NewLoader(a.cfg.Data.Dir, a.log).Load()
	students, err := roster.NewLoader(a.log).LoadFile(filepath.Join(a.cfg.Data.Dir, roster.FileName))
	return ref, students, err
}

func (a *app) openStore() (*store.Store, func(), error) {
	database, err := db.New(a.cfg.Store.Driver, a.cfg.Store.DSN, a.log)
	if err != nil {
		return nil, nil, err
	}
	return store.New(database), func() { database.Close() }, nil
}

// load returns reference data and roster from the configured source.
func (a *app) load(ctx context.Context) (*reference.Data, []models.Student, error) {
	if a.cfg.Data.Source != config.SourceDB {
		return a.loadFiles()
	}

	st, closeStore, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	defer closeStore()

	ref, err := st.LoadReference(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNoActiveVersion) {
			return nil, nil, fmt.Errorf("%w; run \"classcommute import\" first", err)
		}
		return nil, nil, err
	}
	students, err := st.LoadStudents(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ref, students, nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (overrides environment)")
	id := fs.String("id", "", "CUNY ID to log in with")
	station := fs.String("station", "", "Departure station")
	class := fs.String("class", "", "Class number, name or display text")
	start := fs.String("start", "", `Departure time, e.g. "9:30 AM" or "09:30"`)
	notify := fs.String("notify", "", "Answer to the notify question: yes or no")
	send := fs.String("send", "", "Answer to the send question: yes or no")
	format := fs.String("format", console.FormatText, "Output format: text or json")
	fs.Parse(args)

	if *format != console.FormatText && *format != console.FormatJSON {
		return fmt.Errorf("unknown format %q", *format)
	}

	a, err := setup(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ref, students, err := a.load(ctx)
	var loadErr *roster.LoadError
	switch {
	case errors.As(err, &loadErr):
		// keep going with the students read before the bad entry
		fmt.Fprintln(os.Stderr, "Warning:", loadErr.Message)
	case err != nil:
		return err
	}

	prompt := os.Stdout
	if *format == console.FormatJSON {
		prompt = os.Stderr
	}
	sender := mail.NewSender(mail.BrowserLauncher{}, a.cfg.Planner.MailSubject, a.log)
	shell := console.New(os.Stdin, os.Stdout, prompt, ref, students, sender, a.cfg.Planner.DelayPenaltyMinutes, a.log)

	err = shell.Run(console.Options{
		ID:      *id,
		Station: *station,
		Class:   *class,
		Start:   *start,
		Notify:  *notify,
		Send:    *send,
		Format:  *format,
	})
	if errors.Is(err, console.ErrInputClosed) {
		return nil
	}
	return err
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (overrides environment)")
	fs.Parse(args)

	a, err := setup(*configPath)
	if err != nil {
		return err
	}

	ref, students, err := a.loadFiles()
	if err != nil {
		return fmt.Errorf("roster not imported: %w", err)
	}

	database, err := db.New(a.cfg.Store.Driver, a.cfg.Store.DSN, a.log)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	versionID, err := store.New(database).Import(ctx, ref, students, a.cfg.Data.Dir)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d stations, %d travel times, %d alerts, %d station line sets and %d students as version %d\n",
		len(ref.Stations), len(ref.TravelTimes), len(ref.Alerts), len(ref.StationLines), len(students), versionID)

	results, err := maintenance.New(database, a.log).CleanupOldVersions(ctx, a.cfg.Store.KeepVersions)
	if err != nil {
		a.log.Warn("Skipping cleanup of old versions", "error", err)
		return nil
	}
	for _, r := range results {
		if r.CleanupStatus == maintenance.StatusDeleted {
			fmt.Printf("Removed version %d (%s), %d rows\n", r.VersionID, r.VersionName, r.RecordsDeleted)
		}
	}
	return nil
}

func runStations(args []string) error {
	fs := flag.NewFlagSet("stations", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (overrides environment)")
	query := fs.String("q", "", "Only list stations containing this text")
	fs.Parse(args)

	a, err := setup(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var ref *reference.Data
	if a.cfg.Data.Source == config.SourceDB {
		st, closeStore, err := a.openStore()
		if err != nil {
			return err
		}
		defer closeStore()
		if ref, err = st.LoadReference(ctx); err != nil {
			return err
		}
	} else {
		ref = reference.NewLoader(a.cfg.Data.Dir, a.log).Load()
	}

	if console.ListStations(os.Stdout, ref, *query) == 0 {
		fmt.Fprintln(os.Stderr, "No stations found.")
	}
	return nil
}
