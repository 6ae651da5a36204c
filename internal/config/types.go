// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/myhttpd/myhttpd/pkg/types"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid configuration")

type (
	// ServerConfig is fixed once at startup and passed by value or read-only
	// pointer to the bootstrap and the dispatcher.
	ServerConfig struct {
		// DocRoot is the directory request paths are resolved under, and the
		// chroot target when Chroot is set.
		DocRoot string           `json:"docroot" toml:"docroot"`
		Host    string           `json:"host" toml:"host"`
		Port    types.ListenPort `json:"port" toml:"port"`
		Chroot  bool             `json:"chroot" toml:"chroot"`
		User    string           `json:"user" toml:"user"`
		Group   string           `json:"group" toml:"group"`
		// Debug keeps the process in the foreground, logging to stderr at debug level.
		Debug bool `json:"debug" toml:"debug"`
	}

	// InvalidConfigError describes why a ServerConfig was rejected.
	InvalidConfigError struct {
		Err error
	}
)

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

// Unwrap returns ErrInvalidConfig and the underlying cause.
func (e *InvalidConfigError) Unwrap() []error { return []error{ErrInvalidConfig, e.Err} }

// Validate checks typed fields first, then the whole value against #Config.
func (c *ServerConfig) Validate() error {
	if err := c.Port.Validate(); err != nil {
		return &InvalidConfigError{Err: err}
	}
	if err := validateSchema(c); err != nil {
		return &InvalidConfigError{Err: err}
	}
	return nil
}

// EffectiveDocRoot is the prefix handed to the file resolver. After a chroot
// into DocRoot the process sees the document root as "/", so the prefix is empty.
func (c *ServerConfig) EffectiveDocRoot() string {
	if c.Chroot {
		return ""
	}
	return c.DocRoot
}

// Daemonize reports whether the process detaches from its terminal.
func (c *ServerConfig) Daemonize() bool {
	return !c.Debug
}

// CommandLine returns flags and arguments that load back into c. The
// launcher passes them to the detached process.
func (c *ServerConfig) CommandLine() []string {
	args := []string{
		"--" + FlagPort + "=" + strconv.Itoa(int(c.Port)),
		"--" + FlagHost + "=" + c.Host,
	}
	if c.Chroot {
		args = append(args, "--"+FlagChroot, "--"+FlagUser+"="+c.User, "--"+FlagGroup+"="+c.Group)
	}
	if c.Debug {
		args = append(args, "--"+FlagDebug)
	}
	return append(args, "--", c.DocRoot)
}

// TOML renders the configuration for display.
func (c *ServerConfig) TOML() ([]byte, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return out, nil
}
