package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/banshee-data/crossing.report/internal/geom"
	"github.com/banshee-data/crossing.report/internal/report"
	"github.com/banshee-data/crossing.report/internal/session"
)

type runOptions struct {
	zonesPath string
	record    bool
	name      string
	prompt    string
	fast      bool
	media     mediaOptions
}

// zoneFileEntry is one zone in a --zones file.
type zoneFileEntry struct {
	Name     string       `json:"name"`
	Boundary geom.Polygon `json:"boundary"`
}

func newRunCmd(g *globalOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run VIDEO",
		Short: "Count crossings in one video without the web UI",
		Long: `run plays VIDEO once through the tracker, counting crossings between the
zones from --zones. At the end (or on Ctrl-C) it asks for a name and saves
the counts, plus the annotated video with --record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), g, o, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.zonesPath, "zones", "", "JSON file with [{\"name\": ..., \"boundary\": [{\"x\":..,\"y\":..}, ...]}]")
	f.BoolVar(&o.record, "record", false, "record the annotated video")
	f.StringVar(&o.name, "name", "", "save under this name without prompting")
	f.StringVar(&o.prompt, "prompt", promptStdin, "how to ask for the record name: stdin, dialog or none")
	f.BoolVar(&o.fast, "fast", false, "process frames as fast as possible instead of at the configured interval")
	_ = cmd.MarkFlagRequired("zones")
	o.media.register(cmd)
	return cmd
}

func loadZonesFile(path string) ([]zoneFileEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones: %w", err)
	}
	var entries []zoneFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse zones %s: %w", path, err)
	}
	if len(entries) < 2 {
		return nil, fmt.Errorf("zones %s: need at least two zones to count crossings, got %d", path, len(entries))
	}
	return entries, nil
}

func runOnce(ctx context.Context, g *globalOptions, o *runOptions, path string, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	prompt, err := newPrompter(o.prompt, in, out)
	if err != nil {
		return err
	}
	entries, err := loadZonesFile(o.zonesPath)
	if err != nil {
		return err
	}
	cfg, err := g.tuning()
	if err != nil {
		return err
	}
	store, err := g.openDB()
	if err != nil {
		return err
	}
	defer store.Close()

	opts, closer, err := o.media.sessionOptions(cfg, store)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	if o.fast {
		opts.FrameInterval = 0
	}
	s := session.New(opts)
	defer s.Close()

	if opts.Detector == nil {
		log.Warn().Msg("no detector configured (--detections or --yolo-weights): nothing will be counted")
	}
	for _, e := range entries {
		if _, err := s.AddZone(e.Name, e.Boundary); err != nil {
			return fmt.Errorf("zone %q: %w", e.Name, err)
		}
	}
	if err := s.SetRecording(o.record); err != nil {
		return err
	}
	if err := s.Load(ctx, path); err != nil {
		return err
	}
	if err := s.Play(); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := s.Wait(sigCtx); err != nil {
		log.Info().Msg("interrupted, stopping")
		if _, err := s.Stop(); err != nil {
			return err
		}
	}

	req := s.PendingCommit()
	if req == nil {
		fmt.Fprintln(out, "No crossings counted and nothing recorded; nothing to save.")
		return nil
	}
	printCommitSummary(out, req)

	name := o.name
	if name == "" {
		if name, err = prompt(req); err != nil {
			_ = s.CancelCommit()
			return err
		}
	}
	id, err := s.FinalizeCommit(ctx, name)
	if err != nil {
		return err
	}
	if id == 0 {
		fmt.Fprintln(out, "Discarded.")
		return nil
	}
	fmt.Fprintf(out, "Saved record %d %q.\n", id, name)
	return nil
}

func printCommitSummary(out io.Writer, req *session.CommitRequest) {
	fmt.Fprintf(out, "%s: %d frames, %.1fs, %d crossings\n", req.Source, req.FrameCount, req.Seconds, req.Total)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, tc := range req.Transitions {
		if tc.Count > 0 {
			fmt.Fprintf(tw, "  %s\t%d\n", report.RouteLabel(tc), tc.Count)
		}
	}
	_ = tw.Flush()
}
