// Package plugin defines the bundle a capability plugin registers with the
// runtime.
package plugin

import (
	"context"
	"fmt"

	"github.com/rcliao/agentcore/internal/capability"
	"github.com/rcliao/agentcore/internal/model"
	"github.com/rcliao/agentcore/internal/state"
)

// Plugin groups providers, actions and evaluators under one name.
type Plugin struct {
	Name        string
	Description string

	Providers  []state.Provider
	Actions    []*capability.Action
	Evaluators []*capability.Evaluator

	// Schema describes the plugin's persisted layout. Its hash is recorded per
	// plugin; Migrate runs only when the hash changes.
	Schema  []byte
	Migrate func(ctx context.Context) error
}

// Validate checks the bundle before registration.
func (p *Plugin) Validate() error {
	if p == nil || p.Name == "" {
		return fmt.Errorf("%w: plugin name is required", model.ErrInvalidInput)
	}
	if p.Migrate != nil && len(p.Schema) == 0 {
		return fmt.Errorf("%w: plugin %s has a migration but no schema", model.ErrInvalidInput, p.Name)
	}
	return nil
}
