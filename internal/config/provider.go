// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"

	"github.com/spf13/pflag"
)

// LoadOptions carries the parsed command line.
type LoadOptions struct {
	// Flags is the flag set RegisterFlags populated, after parsing.
	Flags *pflag.FlagSet
	// Args holds the positional arguments; exactly one document root is expected.
	Args []string
}

// Provider produces a validated ServerConfig.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*ServerConfig, error)
}

type flagProvider struct{}

// NewProvider returns the flag-backed Provider.
func NewProvider() Provider {
	return &flagProvider{}
}

// Load builds and validates the configuration from opts.
func (p *flagProvider) Load(ctx context.Context, opts LoadOptions) (*ServerConfig, error) {
	return Load(ctx, opts)
}
