package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/stockdiary/internal/config"
	"github.com/TobiSchelling/stockdiary/internal/database"
	"github.com/TobiSchelling/stockdiary/internal/journal"
	"github.com/TobiSchelling/stockdiary/internal/logging"
	"github.com/TobiSchelling/stockdiary/internal/observation"
	"github.com/TobiSchelling/stockdiary/internal/quote"
	"github.com/TobiSchelling/stockdiary/internal/server"
	"github.com/TobiSchelling/stockdiary/internal/store"
)

var version = "dev"

var (
	verbose    bool
	offline    bool
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "stockdiary",
	Short:   "A-share observation journal",
	Long:    "stockdiary records dated stock observations in a GitHub-hosted journal file and analyses which tickers keep coming back.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New("info")

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger = logging.New(level)
		zlog.Logger = logger
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use an in-memory journal instead of GitHub")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(draftsCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(quotesCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("stockdiary", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/stockdiary/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at your journal repository, and put GITHUB_TOKEN in the environment or a .env file.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show journal and draft status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *journal.Service) error {
			st, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Journal: %s/%s %s\n", cfg.Repository.Owner, cfg.Repository.Name, cfg.Repository.Path)
			fmt.Printf("  Observations: %d\n", st.Observations)
			fmt.Printf("  Distinct dates: %d\n", st.Dates)
			fmt.Printf("  Revision: %s\n", orDash(st.Revision))
			fmt.Printf("\nDrafts pending: %d\n", st.Drafts)
			return nil
		})
	},
}

// --- list command ---

var (
	listSearch string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal observations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *journal.Service) error {
			obs, err := svc.Observations(cmd.Context(), listSearch)
			if err != nil {
				return err
			}
			if len(obs) == 0 {
				fmt.Println("No observations.")
				return nil
			}
			if listLimit > 0 && len(obs) > listLimit {
				obs = obs[:listLimit]
			}
			printObservations(os.Stdout, obs)
			return nil
		})
	},
}

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Filter by code, name, tag or comment")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Show at most n observations")
}

// --- add command ---

var addInput observation.Input

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a draft observation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *journal.Service) error {
			in := addInput
			if in.Date == "" {
				in.Date = svc.LastDate()
			}
			if missingRequired(in) {
				if !interactive() {
					return observation.ErrMissingFields
				}
				if err := promptObservation(&in); err != nil {
					return err
				}
			}

			o, err := svc.AddDraft(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("Added draft %s: %s %s %s @ %.2f\n", o.ID, o.Date, o.TickerCode, o.TickerName, o.Price)
			fmt.Println("Run 'stockdiary submit' to write drafts to the journal.")
			return nil
		})
	},
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&addInput.Date, "date", "", "Observation date (YYYY-MM-DD, defaults to the last date used)")
	f.StringVar(&addInput.TickerCode, "code", "", "Ticker code, e.g. 600000")
	f.StringVar(&addInput.TickerName, "name", "", "Ticker name")
	f.StringVar(&addInput.Price, "price", "", "Observed price")
	f.StringSliceVar(&addInput.Industry, "industry", nil, "Industry tags (comma separated)")
	f.StringSliceVar(&addInput.Concept, "concept", nil, "Concept tags (comma separated)")
	f.StringVar(&addInput.Forecast, "forecast", "", "Forecast: long, short or none")
	f.StringVar(&addInput.Comment, "comment", "", "Free-text comment (markdown)")
}

// --- drafts command ---

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Manage unsubmitted draft observations",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List drafts in entry order",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		drafts, err := db.GetDrafts()
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			fmt.Println("No drafts. Add one with: stockdiary add")
			return nil
		}
		printDrafts(os.Stdout, drafts)
		return nil
	},
}

var draftsRemoveCmd = &cobra.Command{
	Use:   "remove [uuid]",
	Short: "Remove a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		removed, err := db.DeleteDraft(args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("draft %s not found", args[0])
		}
		fmt.Printf("Removed draft %s\n", args[0])
		return nil
	},
}

var draftsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.CountDrafts()
		if err != nil {
			return err
		}
		if n > 0 && interactive() {
			ok, err := confirm(fmt.Sprintf("Remove %d drafts?", n))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("aborted")
			}
		}
		if err := db.ClearDrafts(); err != nil {
			return err
		}
		fmt.Printf("Removed %d drafts\n", n)
		return nil
	},
}

func init() {
	draftsCmd.AddCommand(draftsListCmd)
	draftsCmd.AddCommand(draftsRemoveCmd)
	draftsCmd.AddCommand(draftsClearCmd)
}

// --- submit command ---

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Merge drafts into the journal file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *journal.Service) error {
			res, err := svc.Submit(cmd.Context())
			switch {
			case errors.Is(err, journal.ErrNothingToSubmit):
				fmt.Println("Nothing to submit.")
				return nil
			case errors.Is(err, store.ErrConflict):
				return fmt.Errorf("%w; drafts were kept, run submit again", err)
			case errors.Is(err, store.ErrNoToken):
				return fmt.Errorf("%w: set %s in the environment or a .env file", err, cfg.Repository.TokenEnv)
			case err != nil:
				return err
			}
			fmt.Printf("Submitted %d drafts (%d observations in journal, revision %s)\n",
				res.Submitted, res.Total, res.Revision)
			return nil
		})
	},
}

// --- analyze command ---

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show recurring tickers and tag frequencies over recent dates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *journal.Service) error {
			r, err := svc.Analysis(cmd.Context())
			if err != nil {
				return err
			}
			if analyzeJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			printAnalysis(os.Stdout, r)
			return nil
		})
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the analysis as JSON")
}

// --- quotes command ---

var quotesFeed string

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Show current prices for tickers in the analysis window",
	RunE: func(cmd *cobra.Command, args []string) error {
		if quotesFeed != "" {
			cfg.Quotes.Feed = quotesFeed
		}
		if _, err := quote.ParseFormat(cfg.Quotes.Feed); err != nil {
			return err
		}
		return withService(func(svc *journal.Service) error {
			rows, err := svc.Quotes(cmd.Context())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No prices to show.")
				return nil
			}
			printQuotes(os.Stdout, rows)
			return nil
		})
	},
}

func init() {
	quotesCmd.Flags().StringVar(&quotesFeed, "feed", "", "Quote feed: tencent or sina")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		return withService(func(svc *journal.Service) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Starting server at http://localhost:%d\n", port)
			fmt.Println("Press Ctrl+C to stop")
			return server.Serve(ctx, svc, port, logger)
		})
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// loadConfig resolves and loads the config file. Offline runs without a
// config file fall back to the embedded defaults.
func loadConfig() (*config.Config, error) {
	path, err := config.ResolveConfigPath(configPath)
	if err != nil {
		if offline && configPath == "" {
			return config.Default(), nil
		}
		return nil, err
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return c, nil
}

func openDB() (*database.DB, error) {
	return database.OpenInDir(cfg.GetDataDir())
}

func openStore() (store.Store, error) {
	if offline {
		logger.Warn().Msg("offline mode: journal changes are kept in memory only")
		return store.NewMemory(), nil
	}
	return store.NewGitHub(cfg.Repository, cfg.Repository.Token(), logger)
}

// withService builds the journal service, runs fn and releases the database.
func withService(fn func(svc *journal.Service) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := openStore()
	if err != nil {
		return err
	}

	return fn(journal.New(st, db, quoteFetcher(), cfg.Analysis.Window, logger))
}

// quoteFetcher builds the configured quote client. A bad feed setting only
// disables quotes.
func quoteFetcher() journal.QuoteFetcher {
	c, err := quote.NewClient(cfg.Quotes, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("quote feed disabled")
		return nil
	}
	return c
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
