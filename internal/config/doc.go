// SPDX-License-Identifier: MPL-2.0

// Package config builds the daemon's immutable ServerConfig from command-line
// flags. Viper is bound to the pflag set for defaults and lookups; the result is
// checked by typed validation and by an embedded CUE schema (config_schema.cue)
// before anything else in the process sees it.
//
// There is no configuration file. The TOML rendering exists only so operators
// can inspect the effective configuration.
package config
