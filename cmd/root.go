package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/abhisek/dash/internal/config"
	"github.com/abhisek/dash/internal/engine"
	"github.com/abhisek/dash/internal/lock"
	"github.com/abhisek/dash/internal/metrics"
	"github.com/abhisek/dash/internal/skillgraph"
	"github.com/abhisek/dash/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "dash",
	Short:         "Adaptive practice scheduler",
	Long:          "dash tracks per-skill memory strength for each learner and picks the next question to practice.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("metrics-textfile")
		if path == "" {
			return nil
		}
		if err := prometheus.WriteToTextfile(path, registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		return nil
	},
}

// Execute runs the command tree; ctx is canceled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides DASH_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("metrics-textfile", "", "Write engine metrics to this file on exit (node_exporter textfile format)")

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(questionCmd)
	rootCmd.AddCommand(learnerCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config, then the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the config file and DASH_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// openStore loads config and opens the database.
func openStore(cmd *cobra.Command) (*store.Store, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, config.Config{}, err
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("open database: %w", err)
	}
	return s, cfg, nil
}

// registry holds the engine collectors for --metrics-textfile.
var registry = prometheus.NewRegistry()

// defaultMetrics registers the engine collectors once per process.
var defaultMetrics = sync.OnceValue(func() *metrics.Metrics {
	return metrics.New(registry)
})

// runtime is everything a learner-facing command needs.
type runtime struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
	close  func()
}

// openRuntime builds the engine over the database. The catalog comes from
// cfg.CatalogPath when set, otherwise from the imported skills table.
func openRuntime(cmd *cobra.Command) (*runtime, error) {
	ctx := cmd.Context()
	s, cfg, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	closers := []func(){func() { s.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		closeAll()
		return nil, err
	}

	var src skillgraph.Source = s.SkillRepo()
	if cfg.CatalogPath != "" {
		src = skillgraph.FileSource{Path: cfg.CatalogPath}
	}
	catalog, err := skillgraph.Load(ctx, src)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("%w\nimport a catalog with 'dash catalog import <file>'", err)
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Lock.RedisURL != "" {
		rcfg := lock.DefaultRedisConfig(cfg.Lock.RedisURL)
		rcfg.TTL = cfg.Lock.TTL
		rl, err := lock.NewRedisLocker(ctx, rcfg, logger)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("connect lock backend: %w", err)
		}
		closers = append(closers, func() { rl.Close() })
		locker = rl
	}

	e, err := engine.New(skillgraph.NewRef(catalog), s.LearnerRepo(), s.QuestionRepo(), engine.Options{
		Tuning:       cfg.Tuning,
		HistoryLimit: cfg.HistoryLimit,
		Locker:       locker,
		Events:       s.EventRepo(),
		Metrics:      defaultMetrics(),
		Logger:       logger,
	})
	if err != nil {
		closeAll()
		return nil, err
	}
	return &runtime{store: s, engine: e, logger: logger, close: closeAll}, nil
}
