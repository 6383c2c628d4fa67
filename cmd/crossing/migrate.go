package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/banshee-data/crossing.report/internal/db"
)

func newMigrateCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect and change the database schema version",
		Long: `migrate opens --db without applying migrations, so it can inspect or
repair a database in any state. Other commands migrate up automatically.`,
	}

	// openRaw skips NewDB so a dirty schema can still be inspected.
	openRaw := func() (*db.DB, error) {
		return db.OpenDB(g.dbPath)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRaw()
			if err != nil {
				return err
			}
			defer store.Close()
			log.Info().Str("db", g.dbPath).Msg("running migrations")
			if err := store.MigrateUp(); err != nil {
				return err
			}
			return printMigrationStatus(cmd, store)
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRaw()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.MigrateDown(); err != nil {
				return err
			}
			return printMigrationStatus(cmd, store)
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current and latest schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRaw()
			if err != nil {
				return err
			}
			defer store.Close()
			return printMigrationStatus(cmd, store)
		},
	}

	to := &cobra.Command{
		Use:   "to VERSION",
		Short: "Migrate up or down to VERSION",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version number: %s", args[0])
			}
			store, err := openRaw()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.MigrateTo(uint(v)); err != nil {
				return err
			}
			return printMigrationStatus(cmd, store)
		},
	}

	var yes bool
	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Record VERSION as applied without running it (dirty state recovery)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version number: %s", args[0])
			}
			if !yes {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "WARNING: forcing migration version to %d\n", v)
				fmt.Fprintln(out, "This should only be used to recover from a dirty migration state.")
				fmt.Fprint(out, "Continue? [y/N]: ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if a := strings.TrimSpace(answer); a != "y" && a != "Y" {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
			}
			store, err := openRaw()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.MigrateForce(v); err != nil {
				return err
			}
			return printMigrationStatus(cmd, store)
		},
	}
	force.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(up, down, status, to, force)
	return cmd
}

func printMigrationStatus(cmd *cobra.Command, store *db.DB) error {
	st, err := store.MigrationStatus()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Current version: %d\n", st.Version)
	fmt.Fprintf(out, "Latest version:  %d\n", st.Latest)
	fmt.Fprintf(out, "Dirty: %v\n", st.Dirty)
	switch {
	case st.Dirty:
		fmt.Fprintln(out, "A migration failed mid-execution. Inspect the database, then run: crossing migrate force <version>")
	case st.Pending():
		fmt.Fprintln(out, "Pending migrations: run crossing migrate up")
	}
	return nil
}
