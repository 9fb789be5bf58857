package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchyard/internal/api"
	"github.com/zulandar/switchyard/internal/audit"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Switchyard HTTP API",
		Long: `Serves the JSON API, including a server-sent event stream of board
events. When audit.schedule is set the ordering audit runs on that cron
schedule alongside the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	addCommonFlags(cmd, &configPath, nil)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: server.port from config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	hub := api.NewHub()
	a, err := newApp(cmd, configPath, hub)
	if err != nil {
		return err
	}
	if port == 0 {
		port = a.cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if a.cfg.Audit.Schedule != "" {
		auditor, err := audit.New(audit.Options{
			Store:    a.store,
			Notifier: a.notifier,
			Logger:   a.log,
			Repair:   a.cfg.Audit.Repair,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := auditor.Loop(ctx, a.cfg.Audit.Schedule); err != nil && !errors.Is(err, context.Canceled) {
				a.log.WithError(err).Error("audit loop stopped")
			}
		}()
	}

	return api.Start(ctx, api.StartOpts{
		Service: a.svc,
		Hub:     hub,
		Port:    port,
		Out:     cmd.OutOrStdout(),
		Logger:  a.log,
	})
}
