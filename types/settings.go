package types

// AutoAliasMode controls how aggressively the aliasing subsystem proposes
// transient resources for pool packing (§4.6 "Auto-assignment").
type AutoAliasMode uint8

const (
	AutoAliasOff AutoAliasMode = iota
	AutoAliasConservative
	AutoAliasBalanced
	AutoAliasAggressive
)

func (m AutoAliasMode) String() string {
	switch m {
	case AutoAliasOff:
		return "off"
	case AutoAliasConservative:
		return "conservative"
	case AutoAliasBalanced:
		return "balanced"
	case AutoAliasAggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// AutoAliasPackingStrategy selects the lifetime-packing algorithm (§4.6
// "Packing within a pool").
type AutoAliasPackingStrategy uint8

const (
	PackingGreedySweepLine AutoAliasPackingStrategy = iota
	PackingBranchAndBound
)

// Settings bundles the host-configurable knobs named in §6 "Configuration".
// It is supplied by the host's settings service (an injected collaborator,
// not owned by the core) and copied once when the graph is created.
type Settings struct {
	AutoAliasMode             AutoAliasMode
	AutoAliasPackingStrategy   AutoAliasPackingStrategy
	AutoAliasPoolRetireIdleFrames uint32
	AutoAliasPoolGrowthHeadroom   float32
	AutoAliasLogExclusionReasons  bool
	UseAsyncCompute               bool
}

// DefaultSettings returns the documented defaults from §6.
func DefaultSettings() Settings {
	return Settings{
		AutoAliasMode:                 AutoAliasBalanced,
		AutoAliasPackingStrategy:      PackingGreedySweepLine,
		AutoAliasPoolRetireIdleFrames: 120,
		AutoAliasPoolGrowthHeadroom:   1.5,
		AutoAliasLogExclusionReasons:  false,
		UseAsyncCompute:               true,
	}
}
