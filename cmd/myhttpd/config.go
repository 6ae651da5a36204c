// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newConfigCommand creates `myhttpd config`, which validates the same flags
// and arguments as the server and prints the result as TOML.
func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config [flags] <docroot>",
		Short: "Show the effective configuration",
		Long: `Validate flags and the document root exactly as the server would and
print the resulting configuration as TOML. Nothing is bound or started.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			out, err := cfg.TOML()
			if err != nil {
				return fail(cmd, err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
