package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/seed"
	"github.com/example/room-scheduler/internal/shell"
)

func newRootCmd(s streams) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "roomctl",
		Short: "Room reservation shell",
		Long: `roomctl keeps a knowledge base of rooms, activities and bookings.
It places new bookings, preempting lower-priority ones when needed, and audits
the schedule for conflicts, undersized rooms and missing equipment.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd.Context(), flags, s)
		},
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&flags.dbPath, "db", "", "SQLite database path (overrides sqlite_dsn)")
	pf.BoolVar(&flags.noPersist, "no-persist", false, "Keep state in memory only")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(shellCmd(flags, s))
	root.AddCommand(runCmd(flags, s))
	root.AddCommand(seedCmd(flags, s))
	root.AddCommand(migrateCmd(flags, s))
	root.AddCommand(snapshotsCmd(flags, s))
	return root
}

func shellCmd(flags *globalFlags, s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd.Context(), flags, s)
		},
	}
}

func runShell(ctx context.Context, flags *globalFlags, s streams) error {
	a, err := newApp(ctx, flags, s)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.loadState(ctx); err != nil {
		return err
	}
	return a.dispatcher(shell.IsTerminal(s.in)).Run(ctx, s.in)
}

func runCmd(flags *globalFlags, s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <verb> [args...]",
		Short: "Execute one shell command and exit",
		Example: `  roomctl run problems
  roomctl run book Lecture_CRP_1 2026-01-05T14:00 2026-01-05T16:00 1
  roomctl --db state.db run book Lecture_CRP_1 2026-01-07T09:00 2026-01-07T11:00 -1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags, s)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.loadState(ctx); err != nil {
				return err
			}
			logger := a.logger.With("command_id", uuid.NewString())
			_, err = a.dispatcher(false).Execute(logging.ContextWithLogger(ctx, logger), strings.Join(args, " "))
			return err
		},
	}
	// Everything after the verb belongs to the verb, so "-1" stays a priority.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func seedCmd(flags *globalFlags, s streams) *cobra.Command {
	var (
		file  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store the demonstration knowledge base (or a YAML file) as the current state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags, s)
			if err != nil {
				return err
			}
			defer a.close()
			if a.services.Snapshots == nil {
				return fmt.Errorf("seed: %w", errPersistenceDisabled)
			}

			current, _, err := a.storage.LatestSnapshot(ctx)
			switch {
			case errors.Is(err, persistence.ErrNotFound):
			case err != nil:
				return err
			case !current.Empty() && !force:
				return fmt.Errorf("seed: database already holds %d rooms and %d bookings; use --force to replace them",
					len(current.Rooms), len(current.Bookings))
			}

			snapshot := seed.Reference()
			if file != "" {
				if snapshot, err = seed.LoadFile(file); err != nil {
					return err
				}
			}
			if err := a.importSnapshot(ctx, snapshot); err != nil {
				return err
			}
			info, err := a.services.Snapshots.Save(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Seeded: %s (%d rooms, %d bookings)\n", info.ID, info.Rooms, info.Bookings)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML knowledge-base file to import instead of the demonstration seed")
	cmd.Flags().BoolVar(&force, "force", false, "Replace a non-empty state")
	return cmd
}

func migrateCmd(flags *globalFlags, s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if !cfg.Persist {
				return fmt.Errorf("migrate: %w", errPersistenceDisabled)
			}
			logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: s.err})
			if err != nil {
				return err
			}

			storage, err := openStorage(ctx, cfg.SQLiteDSN, logger)
			if err != nil {
				return err
			}
			defer storage.Close()

			applied, err := storage.Migrate(ctx)
			if err != nil {
				return err
			}
			status, err := storage.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintf(s.out, "Schema up to date (version %s)\n", status.CurrentVersion)
				return nil
			}
			fmt.Fprintf(s.out, "Applied: %s (version %s)\n", strings.Join(applied, ", "), status.CurrentVersion)
			return nil
		},
	}
}

func snapshotsCmd(flags *globalFlags, s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags, s)
			if err != nil {
				return err
			}
			defer a.close()
			if a.services.Snapshots == nil {
				return fmt.Errorf("snapshots: %w", errPersistenceDisabled)
			}

			infos, err := a.services.Snapshots.List(ctx)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintln(s.out, "No snapshots stored.")
				return nil
			}
			for _, info := range infos {
				fmt.Fprintf(s.out, "- %s | %s | rooms=%d | bookings=%d\n",
					info.ID, info.SavedAt.Local().Format(time.DateTime), info.Rooms, info.Bookings)
			}
			return nil
		},
	}
}
