package loader

import "github.com/platinummonkey/pluginhost/pkg/plugins"

// Strategy decides how a plugin's roots become a unit. It is either Isolated
// or Shared and is chosen before construction.
type Strategy interface {
	strategy()
}

// Isolated gives the plugin its own unit with the listed parents
type Isolated struct {
	Roots   []string
	Parents []*Unit
}

// Shared appends the plugin's roots to the process-wide shared unit
type Shared struct {
	Roots []string
}

func (Isolated) strategy() {}
func (Shared) strategy()   {}

// StrategyFor picks the strategy for a descriptor with canonical roots and
// resolved parents
func StrategyFor(desc *plugins.Descriptor, roots []string, parents []*Unit) Strategy {
	if desc.SharedLoader {
		return Shared{Roots: roots}
	}
	return Isolated{Roots: roots, Parents: parents}
}
