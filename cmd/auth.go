package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/pantry/cli"
	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/internal/session"
	"github.com/grovetools/pantry/pkg/models"
)

// NewAuthCmd returns the auth command group. Sessions live in the daemon;
// without one they last for a single command.
func NewAuthCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Log in to the authentication service and inspect the session",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, newClient)
			if err != nil {
				return err
			}
			defer s.Close()

			wait, _ := cmd.Flags().GetBool("wait")
			st, err := s.client.Session(cmd.Context(), wait)
			if err != nil {
				return err
			}
			return s.printSession(st)
		},
	}
	status.Flags().Bool("wait", false, "Wait for an in-flight login or logout to finish")

	cmd.AddCommand(
		status,
		newAuthLoginCmd(newClient),
		newAuthSignupCmd(newClient),
		authOp(newClient, "logout", "End the session", func(*cobra.Command, *cli.Prompter) (session.Request, error) {
			return session.Logout{}, nil
		}),
		authOp(newClient, "probe", "Ask the authentication service for an existing session", func(*cobra.Command, *cli.Prompter) (session.Request, error) {
			return session.GetAuthStatus{}, nil
		}),
	)
	return cmd
}

func newAuthLoginCmd(newClient ClientFactory) *cobra.Command {
	cmd := authOp(newClient, "login", "Log in with a user name or UUID", func(cmd *cobra.Command, p *cli.Prompter) (session.Request, error) {
		name, _ := cmd.Flags().GetString("name")
		uuid, _ := cmd.Flags().GetString("uuid")
		if name != "" && uuid != "" {
			return nil, errors.InvalidInput("give either --name or --uuid, not both")
		}

		var login models.UserLogin
		switch {
		case uuid != "":
			login.Identifier = models.UserIdentifier{UUID: uuid}
		case name != "":
			login.Identifier = models.UserIdentifier{Name: name}
		default:
			answer, err := p.Line("User name")
			if err != nil {
				return nil, err
			}
			login.Identifier = models.UserIdentifier{Name: answer}
		}

		password, err := p.Password("Password")
		if err != nil {
			return nil, err
		}
		login.Password = password

		if cmd.Flags().Changed("totp") {
			totp, _ := cmd.Flags().GetString("totp")
			login.TOTP = &totp
		}
		return session.Login{UserLogin: login}, nil
	})
	cmd.Flags().String("name", "", "User name")
	cmd.Flags().String("uuid", "", "User UUID")
	cmd.Flags().String("totp", "", "One-time password, when the account requires one")
	return cmd
}

func newAuthSignupCmd(newClient ClientFactory) *cobra.Command {
	cmd := authOp(newClient, "signup", "Register a new user and log in", func(cmd *cobra.Command, p *cli.Prompter) (session.Request, error) {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			answer, err := p.Line("User name")
			if err != nil {
				return nil, err
			}
			name = answer
		}
		password, err := p.Password("Password")
		if err != nil {
			return nil, err
		}
		return session.Signup{UserSignup: models.UserSignup{Name: name, Password: password}}, nil
	})
	cmd.Flags().String("name", "", "User name")
	return cmd
}

// promptFor is swapped in tests.
var promptFor = func(cmd *cobra.Command) *cli.Prompter { return cli.NewPrompter() }

func authOp(newClient ClientFactory, use, short string, build func(*cobra.Command, *cli.Prompter) (session.Request, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := build(cmd, promptFor(cmd))
			if err != nil {
				return err
			}
			s, err := open(cmd, newClient)
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.client.Auth(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := s.printSession(st); err != nil {
				return err
			}
			if st.Status == session.StatusError {
				return errors.New(errors.ErrCodeAuthFailed, st.Error)
			}
			return nil
		},
	}
}

func (s *invocation) printSession(st session.State) error {
	if s.opts.JSONOutput {
		return cli.PrintJSON(s.cmd.OutOrStdout(), st)
	}
	switch st.Status {
	case session.StatusLoggedIn:
		s.pretty.Success("Logged in as " + st.User.Name)
		s.pretty.Field(1, "uuid", st.User.UUID)
	default:
		s.pretty.InfoPretty(string(st.Status))
	}
	return nil
}
