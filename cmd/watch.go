package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/pantry/cli"
	"github.com/grovetools/pantry/config"
	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/internal/registry"
	"github.com/grovetools/pantry/pkg/daemon"
)

func connectDaemon(cfg *config.Config) (daemon.Client, error) {
	return daemon.Connect(cfg)
}

// NewWatchCmd streams updates from the daemon until interrupted. A nil
// factory requires a running daemon.
func NewWatchCmd(connect ClientFactory) *cobra.Command {
	if connect == nil {
		connect = connectDaemon
	}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream inventory and session updates",
		Long: `Prints every update the daemon publishes. The snapshots topic carries the
full inventory list after each change; the changes topic carries only the
response that caused it.

Examples:
  pantry watch --topic changes --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var topic registry.Topic
			switch t, _ := cmd.Flags().GetString("topic"); registry.Topic(t) {
			case registry.TopicSnapshots, registry.TopicChanges:
				topic = registry.Topic(t)
			default:
				return errors.InvalidInput(fmt.Sprintf("unknown topic %q", t))
			}

			s, err := open(cmd, connect)
			if err != nil {
				return err
			}
			defer s.Close()

			updates, err := s.client.StreamState(cmd.Context(), topic)
			if err != nil {
				return err
			}
			for u := range updates {
				if err := s.printUpdate(u); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().String("topic", string(registry.TopicSnapshots), "Update topic: snapshots or changes")
	return cmd
}

func (s *invocation) printUpdate(u daemon.StateUpdate) error {
	if s.opts.JSONOutput {
		return cli.PrintJSON(s.cmd.OutOrStdout(), u)
	}
	switch u.UpdateType {
	case daemon.UpdateSubscribed:
		s.pretty.Muted(0, fmt.Sprintf("subscribed to %s (token %d)", u.Topic, u.Token))
	case daemon.UpdateSession:
		if u.Session != nil {
			s.pretty.Field(0, "session", u.Session.String())
		}
	case daemon.UpdateConfigReload:
		s.pretty.WarnPretty("configuration reloaded: " + u.ConfigFile)
	case daemon.UpdateError:
		s.pretty.ErrorPretty("stream error", fmt.Errorf("%s", u.Error))
	default:
		resp, err := u.Decode()
		if err != nil {
			return err
		}
		if resp == nil {
			return nil
		}
		s.pretty.Muted(0, u.UpdateType)
		return s.print(resp)
	}
	return nil
}
