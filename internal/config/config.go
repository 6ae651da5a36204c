// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"path/filepath"

	"github.com/myhttpd/myhttpd/pkg/types"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names. They double as viper keys.
const (
	FlagPort   = "port"
	FlagHost   = "host"
	FlagDebug  = "debug"
	FlagChroot = "chroot"
	FlagUser   = "user"
	FlagGroup  = "group"

	keyDocRoot = "docroot"
)

// DefaultPort is the well-known HTTP port.
const DefaultPort types.ListenPort = 80

//go:embed config_schema.cue
var configSchema string

// DefaultConfig returns the configuration used when no flag is given.
// DocRoot has no default; it is always a positional argument.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{Port: DefaultPort}
}

// RegisterFlags adds the server flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	defaults := DefaultConfig()
	fs.Int(FlagPort, int(defaults.Port), "TCP port to listen on")
	fs.String(FlagHost, defaults.Host, "address to bind (empty binds all IPv4 interfaces)")
	fs.Bool(FlagDebug, defaults.Debug, "stay in the foreground and log debug output to stderr")
	fs.Bool(FlagChroot, defaults.Chroot, "chroot into the document root and drop privileges (requires --user and --group)")
	fs.String(FlagUser, defaults.User, "user to switch to after chroot")
	fs.String(FlagGroup, defaults.Group, "group to switch to after chroot")
}

// Load binds viper to the parsed flags, adds the positional document root
// made absolute, and validates the result.
func Load(ctx context.Context, opts LoadOptions) (*ServerConfig, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if len(opts.Args) != 1 {
		return nil, &InvalidConfigError{Err: fmt.Errorf("expected exactly one document root argument, got %d", len(opts.Args))}
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault(FlagPort, int(defaults.Port))
	v.SetDefault(FlagHost, defaults.Host)
	v.SetDefault(FlagDebug, defaults.Debug)
	v.SetDefault(FlagChroot, defaults.Chroot)
	v.SetDefault(FlagUser, defaults.User)
	v.SetDefault(FlagGroup, defaults.Group)

	if opts.Flags != nil {
		if err := v.BindPFlags(opts.Flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}
	docRoot := opts.Args[0]
	if docRoot != "" {
		abs, err := filepath.Abs(docRoot)
		if err != nil {
			return nil, &InvalidConfigError{Err: fmt.Errorf("document root %q: %w", docRoot, err)}
		}
		docRoot = abs
	}
	v.Set(keyDocRoot, docRoot)

	cfg := &ServerConfig{
		DocRoot: v.GetString(keyDocRoot),
		Host:    v.GetString(FlagHost),
		Port:    types.ListenPort(v.GetInt(FlagPort)),
		Chroot:  v.GetBool(FlagChroot),
		User:    v.GetString(FlagUser),
		Group:   v.GetString(FlagGroup),
		Debug:   v.GetBool(FlagDebug),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateSchema encodes cfg and unifies it with #Config. The definition is
// closed, so a Go field missing from the schema fails too.
func validateSchema(cfg *ServerConfig) error {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))

	value := ctx.Encode(cfg)
	if value.Err() != nil {
		return fmt.Errorf("failed to encode configuration: %w", value.Err())
	}

	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return formatSchemaError(err)
	}
	return nil
}
