package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/shareify/internal/client/config"
)

// runner is what the commands need from an App.
type runner interface {
	execIface
	loggedInAs(ctx context.Context) string
	input() *bufio.Reader
	Close() error
}

// newApp builds the App for a command. Tests swap it for a fake.
var newApp = func(ctx context.Context, cfg *config.Config) (runner, error) {
	return NewApp(ctx, cfg)
}

var errNoApp = errors.New("client not initialized")

// NewRootCommand assembles the shareify command tree. Running the root
// command without a subcommand starts the interactive shell.
func NewRootCommand() *cobra.Command {
	var (
		flags config.Flags
		app   runner
	)

	withApp := func(fn func(cmd *cobra.Command, args []string, a runner) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return errNoApp
			}
			a := app
			app = nil
			return errors.Join(fn(cmd, args, a), a.Close())
		}
	}

	shell := func(cmd *cobra.Command, _ []string, a runner) error {
		ctx := cmd.Context()
		printlnFn("Welcome to Shareify CLI (type 'help' for commands)")
		runREPL(ctx, a, func() string { return a.loggedInAs(ctx) }, a.input())
		return nil
	}

	root := &cobra.Command{
		Use:           "shareify",
		Short:         "End-to-end encrypted commands to your Shareify server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.Load(cmd)
			if err != nil {
				return err
			}
			app, err = newApp(cmd.Context(), cfg)
			return err
		},
		Args: cobra.NoArgs,
		RunE: withApp(shell),
	}
	flags.Register(root)

	var exec ExecRequest
	execCmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Run a raw command on the server, e.g. exec /finder --method POST --body '{\"path\":\"/\"}'",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a runner) error {
			req := exec
			req.Command = args[0]
			return a.Exec(cmd.Context(), req)
		}),
	}
	execCmd.Flags().StringVarP(&exec.Method, "method", "X", "GET", "HTTP method forwarded to the server")
	execCmd.Flags().StringVarP(&exec.Body, "body", "d", "", "JSON object body")
	execCmd.Flags().IntVar(&exec.WaitTime, "wait", 0, "seconds the relay waits for the server (default 3)")
	execCmd.Flags().BoolVar(&exec.Plain, "plain", false, "send without encryption")

	root.AddCommand(
		&cobra.Command{
			Use:   "login [email]",
			Short: "Log in to the bridge",
			Args:  cobra.MaximumNArgs(1),
			RunE: withApp(func(cmd *cobra.Command, args []string, a runner) error {
				return a.Login(cmd.Context(), arg(args, 0))
			}),
		},
		&cobra.Command{
			Use:   "server-login [username]",
			Short: "Log in to your Shareify server through the relay",
			Args:  cobra.MaximumNArgs(1),
			RunE: withApp(func(cmd *cobra.Command, args []string, a runner) error {
				return a.ServerLogin(cmd.Context(), arg(args, 0))
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show identity, tokens and session state",
			Args:  cobra.NoArgs,
			RunE: withApp(func(cmd *cobra.Command, _ []string, a runner) error {
				return a.Status(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "ping",
			Short: "Check whether the server is reachable",
			Args:  cobra.NoArgs,
			RunE: withApp(func(cmd *cobra.Command, _ []string, a runner) error {
				return a.Ping(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:     "ls [path]",
			Aliases: []string{"list"},
			Short:   "List a directory on the server",
			Args:    cobra.MaximumNArgs(1),
			RunE: withApp(func(cmd *cobra.Command, args []string, a runner) error {
				return a.List(cmd.Context(), arg(args, 0))
			}),
		},
		execCmd,
		&cobra.Command{
			Use:   "logout",
			Short: "Forget tokens and credentials",
			Args:  cobra.NoArgs,
			RunE: withApp(func(cmd *cobra.Command, _ []string, a runner) error {
				return a.Logout(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive shell",
			Args:  cobra.NoArgs,
			RunE:  withApp(shell),
		},
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		printErr(root, err)
		return 1
	}
	return 0
}

func printErr(root *cobra.Command, err error) {
	fmt.Fprintln(root.ErrOrStderr(), "Error:", describe(err))
}
