package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"mipwatch/internal/app"
	"mipwatch/internal/platform/config"
	"mipwatch/internal/platform/logger"
	"mipwatch/internal/snapshot/store"
	"mipwatch/pkg/requestcontext"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds the state shared by every subcommand of one invocation.
type cli struct {
	configPath string
	dsn        string
	logLevel   string

	appOpts []app.Option

	app *app.App
	out io.Writer
}

// errNoDatabase stops write commands that would store into a throwaway
// in-memory store.
var errNoDatabase = errors.New("no database configured: set --dsn or MIPWATCH_DATABASE_URL")

func newRootCmd(opts ...app.Option) *cobra.Command {
	return (&cli{appOpts: opts}).command()
}

func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "mipctl",
		Short: "Track the NIST Modules In Process list across snapshots",
		Long: `mipctl ingests dated snapshots of the CMVP Modules In Process list and
reports how each module's status changed over time.

The store is PostgreSQL, chosen with --dsn or MIPWATCH_DATABASE_URL. Without
one, ingest and merge refuse to run and read commands see an empty history.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: c.open,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&c.dsn, "dsn", "", "PostgreSQL connection string (overrides config)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(c.ingestCmd())
	root.AddCommand(c.changesCmd())
	root.AddCommand(c.reportCmd())
	root.AddCommand(c.historyCmd())
	root.AddCommand(c.disappearancesCmd())
	root.AddCommand(c.mergeCmd())

	// PersistentPostRun is skipped when RunE fails, so closing happens here.
	for _, sub := range root.Commands() {
		if sub.RunE != nil {
			sub.RunE = c.closing(sub.RunE)
		}
	}
	return root
}

func (c *cli) closing(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer c.close()
		return run(cmd, args)
	}
}

// requireDatabase fails when snapshots written now would be lost at exit.
func (c *cli) requireDatabase() error {
	if c.app.Ephemeral() {
		return errNoDatabase
	}
	return nil
}

func (c *cli) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.dsn != "" {
		cfg.Database.URL = c.dsn
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), c.logLevel, "text")

	// One clock for the whole invocation.
	ctx := requestcontext.WithTime(cmd.Context(), time.Now())
	cmd.SetContext(ctx)

	a, err := app.Open(ctx, cfg, log, c.appOpts...)
	if err != nil {
		return err
	}
	c.app = a
	c.out = cmd.OutOrStdout()
	return nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

// openSecondary opens the source store of a merge.
var openSecondary = openPostgres

func openPostgres(ctx context.Context, dsn string) (store.Store, func(), error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	return store.NewPostgres(db), func() { _ = db.Close() }, nil
}
