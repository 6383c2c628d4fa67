package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/banshee-data/crossing.report/internal/api"
	"github.com/banshee-data/crossing.report/internal/session"
	"github.com/banshee-data/crossing.report/internal/version"
)

type serveOptions struct {
	listen    string
	mediaDirs []string
	admin     bool
	media     mediaOptions
}

func newServeCmd(g *globalOptions) *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for interactive zone drawing and counting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), g, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.listen, "listen", ":8080", "HTTP listen address")
	f.StringSliceVar(&o.mediaDirs, "media-dir", nil, "directory videos may be loaded from (repeatable; any path when unset)")
	f.BoolVar(&o.admin, "admin", true, "mount /debug/ pages: SQL console and database backup")
	o.media.register(cmd)
	return cmd
}

func runServe(ctx context.Context, g *globalOptions, o *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
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
	opts.OnCommitRequest = func(r *session.CommitRequest) {
		log.Info().Str("mode", string(r.Mode)).Int("crossings", r.Total).Msg("end of video, commit waiting for a name")
	}
	s := session.New(opts)
	defer s.Close()

	mux := api.NewServer(s, store, o.mediaDirs).ServeMux()
	if o.admin {
		if err := store.AttachAdminRoutes(mux); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              o.listen,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", o.listen).Str("db", store.Path()).Msg(version.String() + " listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}
	return nil
}
