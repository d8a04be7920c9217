package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the kitchen CLI until ctx is cancelled and returns the error
// of the failed command, if any.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the command context and reachable from every
// command through loggerFromContext.
func Execute(ctx context.Context, args ...string) error {
	c := New(os.Stderr, LogInfo)
	return c.execute(ctx, c.RootCommand(), args)
}

// execute adds --verbose to root and runs it with args, or with os.Args when
// args is nil.
func (c *CLI) execute(ctx context.Context, root *cobra.Command, args []string) error {
	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if verbose {
			c.SetLogLevel(LogDebug)
		}
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		return nil
	}

	if args != nil {
		root.SetArgs(args)
	}
	return root.ExecuteContext(ctx)
}
