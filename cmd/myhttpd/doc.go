// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI for myhttpd.
//
// The root command validates flags into a config.ServerConfig and hands it to
// the bootstrap package; the config subcommand prints the effective
// configuration without starting anything.
package cmd
