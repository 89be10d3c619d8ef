// Package cmd implements the pantry command tree.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/pantry/cli"
	"github.com/grovetools/pantry/config"
	"github.com/grovetools/pantry/internal/agent"
	"github.com/grovetools/pantry/logging"
	"github.com/grovetools/pantry/pkg/daemon"
	"github.com/grovetools/pantry/pkg/profiling"
	"github.com/grovetools/pantry/version"
)

// ClientFactory opens the client a command talks through.
type ClientFactory func(cfg *config.Config) (daemon.Client, error)

// defaultClient picks the daemon when it runs and an in-process stack otherwise.
func defaultClient(cfg *config.Config) (daemon.Client, error) {
	return daemon.New(cfg)
}

// NewRootCmd builds the full pantry command tree. A nil factory uses the
// daemon-or-local default.
func NewRootCmd(newClient ClientFactory) *cobra.Command {
	if newClient == nil {
		newClient = defaultClient
	}
	root := cli.NewStandardCommand(version.AppName, version.About)
	root.Version = version.Version

	prof := profiling.NewCobraProfiler()
	prof.AddFlags(root)
	root.PersistentPreRunE = prof.PreRun
	root.PersistentPostRun = prof.PostRun

	root.AddCommand(
		NewDaemonCmd(),
		NewInventoryCmd(newClient),
		NewItemCmd(newClient),
		NewUnitCmd(newClient),
		NewAuthCmd(newClient),
		NewDebugCmd(newClient),
		NewWatchCmd(nil),
		NewLogsCmd(),
		NewConfigCmd(),
		NewVersionCmd(),
	)
	return root
}

// Execute runs the command tree and reports any error through cli.ErrorHandler.
func Execute(ctx context.Context) error {
	root := NewRootCmd(nil)
	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		if cmd == nil {
			cmd = root
		}
		return cli.NewErrorHandler(cli.GetOptions(cmd).Verbose).Handle(err)
	}
	return nil
}

// invocation bundles what a client-backed command needs for one run.
type invocation struct {
	cmd    *cobra.Command
	cfg    *config.Config
	client daemon.Client
	opts   cli.CommandOptions
	pretty *logging.PrettyLogger
}

func open(cmd *cobra.Command, newClient ClientFactory) (*invocation, error) {
	defer profiling.Start("open client").Stop()

	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	cli.GetLogger(cmd).WithField("daemon", client.IsRunning()).Debug("Opened client")
	return &invocation{
		cmd:    cmd,
		cfg:    cfg,
		client: client,
		opts:   cli.GetOptions(cmd),
		pretty: logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()),
	}, nil
}

func (s *invocation) Close() error { return s.client.Close() }

// do sends req and turns failure variants into errors.
func (s *invocation) do(req agent.Request) (agent.Response, error) {
	defer profiling.Start("request " + agent.RequestType(req)).Stop()

	resp, err := s.client.Do(s.cmd.Context(), 0, req)
	if err != nil {
		return nil, err
	}
	if agent.Failed(resp) {
		return nil, agent.AsError(resp)
	}
	return resp, nil
}

// print renders resp as JSON under --json, or with the pretty renderer.
func (s *invocation) print(resp agent.Response) error {
	if s.opts.JSONOutput {
		env, err := agent.EncodeResponse(resp)
		if err != nil {
			return err
		}
		return cli.PrintJSON(s.cmd.OutOrStdout(), env)
	}

	switch r := resp.(type) {
	case agent.Inventories:
		cli.RenderInventories(s.pretty, r.Inventories)
	case agent.Inventory:
		cli.RenderInventory(s.pretty, r.Inventory)
	case agent.Item:
		cli.RenderItem(s.pretty, 0, r.Item)
	case agent.NewInventoryUUID:
		s.pretty.Success("Created inventory " + r.InventoryUUID)
	case agent.UpdatedInventory:
		s.pretty.Success("Updated inventory " + r.InventoryUUID)
	case agent.DeletedInventory:
		s.pretty.Success("Deleted inventory " + r.InventoryUUID)
	case agent.NewItemUUID:
		s.pretty.Success("Created item " + r.ItemUUID)
	case agent.UpdatedItem:
		s.pretty.Success("Updated item " + r.ItemUUID)
	case agent.DeletedItem:
		s.pretty.Success("Deleted item " + r.ItemUUID)
	case agent.NewUnitUUID:
		s.pretty.Success("Created unit " + r.UnitUUID)
	default:
		s.pretty.InfoPretty(fmt.Sprintf("%T", resp))
	}
	return nil
}

// run opens a client, sends the request built from args and prints the reply.
func run(newClient ClientFactory, build func(cmd *cobra.Command, args []string) (agent.Request, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		req, err := build(cmd, args)
		if err != nil {
			return err
		}
		s, err := open(cmd, newClient)
		if err != nil {
			return err
		}
		defer s.Close()

		resp, err := s.do(req)
		if err != nil {
			return err
		}
		return s.print(resp)
	}
}
