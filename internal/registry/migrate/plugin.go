package migrate

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
)

// Migrator runs schema migrations for a single plugin.
type Migrator interface {
	Name() string
	// Migrate applies the schema. Migrators for an unselected datastore return nil.
	Migrate(ctx context.Context) error
}

// Plugin represents a migrator with an order for deterministic execution sequence.
type Plugin struct {
	Order    int
	Migrator Migrator
}

var plugins []Plugin

// Register adds a migration plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// RunAll executes all registered migrators sorted by Order.
func RunAll(ctx context.Context) error {
	sorted := slices.Clone(plugins)
	slices.SortStableFunc(sorted, func(a, b Plugin) int { return cmp.Compare(a.Order, b.Order) })

	for _, p := range sorted {
		log.Debug("Running migrator", "name", p.Migrator.Name(), "order", p.Order)
		if err := p.Migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("migration %s failed: %w", p.Migrator.Name(), err)
		}
	}
	return nil
}
