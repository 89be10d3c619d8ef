package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grovetools/pantry/cli"
	"github.com/grovetools/pantry/config"
	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/internal/daemon/engine"
	"github.com/grovetools/pantry/internal/daemon/pidfile"
	"github.com/grovetools/pantry/internal/daemon/server"
	"github.com/grovetools/pantry/logging"
	"github.com/grovetools/pantry/pkg/daemon"
	"github.com/grovetools/pantry/pkg/paths"
)

// NewDaemonCmd returns the pantryd command group.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run and control pantryd",
		Long: `pantryd owns the inventory store and the login session and serves them on a
unix socket. Other pantry commands use it when it runs and otherwise work
on the store directly.`,
	}
	cmd.AddCommand(newDaemonStartCmd(), newDaemonStopCmd(), newDaemonStatusCmd())
	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// serve runs pantryd until ctx ends or a component fails.
func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewLogger("pantryd")
	pidPath := paths.PidFilePath()
	sockPath := daemon.SocketPath(cfg)

	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create state directories: %w", err)
	}
	if err := pidfile.Acquire(pidPath); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil {
			logger.Errorf("Failed to release pidfile: %v", err)
		}
	}()

	stack, err := daemon.OpenStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	srv := server.New(stack.Agent, stack.Session, logging.NewLogger("server"))
	srv.SetRunningConfig(&daemon.RunningConfig{
		Backend:       cfg.Storage.Backend,
		AuthURL:       cfg.Auth.URL,
		Socket:        sockPath,
		TiersEnforced: cfg.Access.TiersEnforced(),
		Sources:       cfg.Sources,
		StartedAt:     time.Now(),
	})

	eng := engine.New(logger)
	eng.Register(stack.Session)
	eng.Register(stack.Agent)
	if cwd, err := os.Getwd(); err == nil {
		watcher, err := daemon.NewConfigWatcher(daemon.ConfigDirs(cwd), daemon.DefaultDebounce, srv.BroadcastConfigReload)
		if err != nil {
			logger.WithError(err).Warn("Config watcher disabled")
		} else {
			defer watcher.Close()
			eng.Register(watcher)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engineDone := make(chan error, 1)
	go func() { engineDone <- eng.Start(ctx) }()

	serverDone := make(chan error, 1)
	go func() { serverDone <- srv.ListenAndServe(sockPath) }()

	logger.WithField("pid", os.Getpid()).WithField("socket", sockPath).Info("Starting daemon")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Received stop signal")
	case runErr = <-engineDone:
		engineDone = nil
	case runErr = <-serverDone:
		serverDone = nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}
	cancel()
	if engineDone != nil {
		if err := <-engineDone; err != nil && runErr == nil {
			runErr = err
		}
	}
	if serverDone != nil {
		if err := <-serverDone; err != nil && runErr == nil {
			runErr = err
		}
	}
	logger.Info("Daemon stopped")
	return runErr
}

func newDaemonStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()
			p := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())

			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				p.InfoPretty("Daemon is not running")
				return nil
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			timeout, _ := cmd.Flags().GetDuration("wait")
			deadline := time.Now().Add(timeout)
			for time.Now().Before(deadline) {
				if !pidfile.Alive(pid) {
					p.Success(fmt.Sprintf("Stopped daemon (PID %d)", pid))
					return nil
				}
				time.Sleep(50 * time.Millisecond)
			}
			p.InfoPretty(fmt.Sprintf("Sent SIGTERM to process %d", pid))
			return nil
		},
	}
	cmd.Flags().Duration("wait", 5*time.Second, "How long to wait for the daemon to exit")
	return cmd
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		Long:  "Reports whether pantryd runs. Exits non-zero when it does not.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			sockPath := daemon.SocketPath(cfg)
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				return errors.DaemonNotRunning(sockPath)
			}

			client, err := daemon.Connect(cfg)
			if err != nil {
				return err
			}
			defer client.Close()
			daemonCfg, err := client.GetConfig(cmd.Context())
			if err != nil {
				return err
			}
			st, err := client.Session(cmd.Context(), false)
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), map[string]interface{}{
					"pid":     pid,
					"config":  daemonCfg,
					"session": st,
				})
			}
			p := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			p.Success(fmt.Sprintf("Running (PID %d)", pid))
			p.Field(1, "socket", daemonCfg.Socket)
			p.Field(1, "backend", daemonCfg.Backend)
			p.Field(1, "session", st.String())
			p.Field(1, "uptime", time.Since(daemonCfg.StartedAt).Round(time.Second))
			return nil
		},
	}
}
