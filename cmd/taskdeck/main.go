// Command taskdeck runs the project-checklist task service: an HTTP server
// over a SQLite store, plus operational subcommands for seeding canonical
// templates and debugging identifier resolution.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
	"github.com/taskdeck/taskdeck/internal/tasks"
	"github.com/taskdeck/taskdeck/internal/templates"
)

var (
	cfgFile string
	vp      = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "taskdeck",
	Short:         "Project checklist task service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default taskdeck.yaml in the working directory)")
	pf.String("db", "taskdeck.db", "SQLite database path (or :memory:)")
	pf.String("listen", ":8080", "HTTP listen address")
	pf.String("templates", "", "template catalog yaml file (default: built-in catalog)")
	pf.Duration("template-ttl", templates.DefaultTTL, "template catalog cache TTL")
	pf.Bool("verbose", false, "log every resolution record")

	for _, key := range []string{"db", "listen", "templates", "template-ttl", "verbose"} {
		if err := vp.BindPFlag(key, pf.Lookup(key)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(resolveCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired components shared by all subcommands.
type app struct {
	cfg     *config.Config
	store   *sqlite.Store
	catalog *templates.Cache
	svc     *tasks.Service
	metrics *tasks.Metrics
	logger  *log.Logger
}

func (a *app) close() {
	_ = a.store.Close()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(vp, cfgFile)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	var loader templates.Loader
	if cfg.TemplateCatalog != "" {
		loader = templates.FileLoader(cfg.TemplateCatalog)
	} else {
		loader = templates.StaticLoader(templates.DefaultCatalog())
	}
	catalog := templates.NewCache(loader, cfg.TemplateTTL)

	logger := log.New(os.Stderr, "", log.LstdFlags)
	metrics := tasks.NewMetrics()

	opts := []tasks.Option{tasks.WithMetrics(metrics)}
	if cfg.Verbose {
		opts = append(opts, tasks.WithLogger(logger))
	}
	svc := tasks.NewService(store, catalog, opts...)

	return &app{
		cfg:     cfg,
		store:   store,
		catalog: catalog,
		svc:     svc,
		metrics: metrics,
		logger:  logger,
	}, nil
}
