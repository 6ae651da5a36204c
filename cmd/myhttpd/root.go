// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/myhttpd/myhttpd/internal/bootstrap"
	"github.com/myhttpd/myhttpd/internal/config"
	"github.com/myhttpd/myhttpd/pkg/types"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree. Server flags are persistent so
// the config subcommand sees the same configuration the server would.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "myhttpd [flags] <docroot>",
		Short: "A minimal static file HTTP server",
		Long: TitleStyle.Render("myhttpd") + SubtitleStyle.Render(" - a minimal static file HTTP server") + `

myhttpd serves the files under <docroot> over HTTP/1.x, one request per
connection. GET and HEAD return regular files; POST is answered with 405
and anything else with 400.

Without --debug the server detaches from the terminal and logs to syslog.
With --chroot it confines itself to <docroot> and switches to --user and
--group before binding its socket.

` + SubtitleStyle.Render("Examples:") + `
  ` + CmdStyle.Render("myhttpd --debug --port 8080 ./public") + `   Serve in the foreground
  ` + CmdStyle.Render("myhttpd --chroot --user www --group www /srv/www") + `
  ` + CmdStyle.Render("myhttpd config --port 8080 ./public") + `   Show the effective configuration`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServer,
	}

	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(newConfigCommand())
	return root
}

// runServer loads the configuration and runs the server until it is told to
// stop. Without --debug it returns once the detached server is up.
func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	b := bootstrap.New(cfg, cfg.CommandLine())
	if err := b.Run(cmd.Context()); err != nil {
		return fail(cmd, err)
	}
	return nil
}

// loadConfig validates flags and arguments into a ServerConfig, rendering
// any failure.
func loadConfig(cmd *cobra.Command, args []string) (*config.ServerConfig, error) {
	cfg, err := config.NewProvider().Load(cmd.Context(), config.LoadOptions{Flags: cmd.Flags(), Args: args})
	if err != nil {
		return nil, fail(cmd, bootstrap.Classify(err))
	}
	return cfg, nil
}

// fail renders err on stderr and converts it to an exit status.
func fail(cmd *cobra.Command, err error) error {
	debugMode, _ := cmd.Flags().GetBool(config.FlagDebug)
	renderError(cmd.ErrOrStderr(), err, debugMode)
	return &ExitError{Code: types.ExitFailure}
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		newRootCommand(),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(types.ExitFailure))
	}
}
