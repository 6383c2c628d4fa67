package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/crossing.report/internal/db"
	"github.com/banshee-data/crossing.report/internal/report"
	"github.com/banshee-data/crossing.report/internal/zones"
)

func newRecordsCmd(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record", "rec"},
		Short:   "List, inspect, chart and delete saved records",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	list := &cobra.Command{
		Use:   "list",
		Short: "List records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.openDB()
			if err != nil {
				return err
			}
			defer store.Close()
			recs, err := store.ListRecords(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			printRecords(cmd.OutOrStdout(), recs)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show one record and its route counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			store, err := g.openDB()
			if err != nil {
				return err
			}
			defer store.Close()
			rec, err := store.GetRecord(cmd.Context(), id)
			if err != nil {
				return err
			}
			counts, err := store.GetTransitions(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					db.Record
					Transitions []zones.TransitionCount `json:"transitions"`
				}{rec, counts})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "#%d %s\n", rec.ID, rec.Name)
			fmt.Fprintf(out, "created:  %s\n", rec.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "frames:   %d (%.1fs)\n", rec.FrameCount, rec.DurationSeconds)
			if rec.VideoPath != "" {
				fmt.Fprintf(out, "video:    %s\n", rec.VideoPath)
			}
			printCounts(out, counts)
			return nil
		},
	}

	totals := &cobra.Command{
		Use:   "totals",
		Short: "Sum route counts over all records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.openDB()
			if err != nil {
				return err
			}
			defer store.Close()
			counts, err := store.TransitionTotals(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), counts)
			}
			printCounts(cmd.OutOrStdout(), counts)
			return nil
		},
	}

	var chartOut string
	chart := &cobra.Command{
		Use:   "chart ID|all",
		Short: "Write a bar chart of one record, or of all records, as PNG or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.openDB()
			if err != nil {
				return err
			}
			defer store.Close()

			var c report.Chart
			if args[0] == "all" {
				c.Title = "All records"
				if c.Counts, err = store.TransitionTotals(cmd.Context()); err != nil {
					return err
				}
			} else {
				id, err := parseRecordID(args[0])
				if err != nil {
					return err
				}
				rec, err := store.GetRecord(cmd.Context(), id)
				if err != nil {
					return err
				}
				c.Title = rec.Name
				c.Subtitle = rec.CreatedAt.Local().Format(time.DateTime)
				if c.Counts, err = store.GetTransitions(cmd.Context(), id); err != nil {
					return err
				}
			}
			if chartOut == "" {
				chartOut = "crossings_" + args[0] + ".png"
			}
			if err := writeChartFile(chartOut, c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", chartOut)
			return nil
		},
	}
	chart.Flags().StringVarP(&chartOut, "output", "o", "", "output file; .html writes an interactive page, anything else PNG")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record and its counts (the video file is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			store, err := g.openDB()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.DeleteRecord(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, show, totals, chart, del)
	return cmd
}

func parseRecordID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", s)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecords(w io.Writer, recs []db.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No records saved yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED\tFRAMES\tSECONDS\tCROSSINGS\tVIDEO")
	for _, r := range recs {
		video := r.VideoPath
		if video == "" {
			video = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.1f\t%d\t%s\n",
			r.ID, r.Name, r.CreatedAt.Local().Format(time.DateTime), r.FrameCount, r.DurationSeconds, r.Total, video)
	}
	_ = tw.Flush()
}

func printCounts(w io.Writer, counts []zones.TransitionCount) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "No crossings.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tCOUNT")
	total := 0
	for _, tc := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", report.RouteLabel(tc), tc.Count)
		total += tc.Count
	}
	fmt.Fprintf(tw, "total\t%d\n", total)
	_ = tw.Flush()
}

func writeChartFile(path string, c report.Chart) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if strings.EqualFold(filepath.Ext(path), ".html") {
		err = report.RenderHTML(f, c)
	} else {
		err = report.WritePNG(f, c)
	}
	if errors.Is(err, report.ErrNoData) {
		return fmt.Errorf("%s: nothing to chart", c.Title)
	}
	return err
}
