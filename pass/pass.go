// Package pass implements the pass declaration model (§3 "Pass", §4.4
// "Insert point"): the per-pass surface a user-facing builder populates with
// a resource-identifier allow-list, a static requirement list, internal
// exit transitions, queue selection, and the four playback phases.
package pass

import (
	"github.com/gogpu/rendergraph/recorder"
	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/types"
)

// RunMask selects which of a pass's playback phases execute in a given
// frame (§3 "run mask").
type RunMask uint8

const (
	RunNone      RunMask = 0
	RunImmediate RunMask = 1 << 0
	RunRetained  RunMask = 1 << 1
	RunBoth              = RunImmediate | RunRetained
)

// HasImmediate reports whether m includes immediate (bytecode) playback.
func (m RunMask) HasImmediate() bool { return m&RunImmediate != 0 }

// HasRetained reports whether m includes retained (Execute) playback.
func (m RunMask) HasRetained() bool { return m&RunRetained != 0 }

func (m RunMask) String() string {
	switch m {
	case RunNone:
		return "none"
	case RunImmediate:
		return "immediate"
	case RunRetained:
		return "retained"
	case RunBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Requirement is a compile-time resource requirement: a handle, the
// subresource range touched, and the desired state (§3 "ResourceRequirement").
type Requirement = recorder.Requirement

// InternalTransition is a post-pass exit state applied to the compile
// tracker without emitting a barrier — the pass's own body is trusted to
// have left the resource in ExitState by the time it returns (§3 Pass
// "internal-transitions list").
type InternalTransition struct {
	Handle    registry.Handle[*resource.Resource]
	Range     types.SubresourceRange
	ExitState types.ResourceState
}

// Fence is an externally-signaled fence a pass's Execute wants added as a
// queue signal after the pass runs (§4.7 "Pass execution").
type Fence struct {
	Queue types.QueueKind
	Value uint64
}

// Anchor names a merge-order reference point for an InsertPoint: either a
// base pass's name or one of the four sentinels the structural merger
// recognizes (§4.4).
type Anchor string

const (
	AnchorBegin     Anchor = "__rg_begin__"
	AnchorAfterBase Anchor = "__rg_after_base__"
	AnchorEnd       Anchor = "__rg_end__"
	AnchorFirstBase Anchor = "__rg_first_base__"
)

// InsertPoint is an extension-contributed pass's placement constraint
// relative to the base pass list (§4.4 "ExternalInsertPoint"). Base passes
// carry no InsertPoint; they are ordered purely by declaration order.
type InsertPoint struct {
	Priority           int
	KeepExtensionOrder bool
	After              []Anchor
	Before             []Anchor
}

// Context is supplied to Update, ExecuteImmediate, and Execute each frame.
// Its concrete implementation is owned by the executor; this package only
// depends on the minimal surface a pass body needs.
type Context interface {
	FrameIndex() uint64
}

// Pass is the per-pass authoring surface (§3 "Pass"). Most passes should
// embed Base rather than implement Pass from scratch.
type Pass interface {
	Name() string
	AllowedPrefixes() []types.ResourceIdentifier
	QueueKind() types.QueueKind
	IsGeometryPass() bool
	RunMask() RunMask
	InsertPoint() (InsertPoint, bool)

	StaticRequirements() []Requirement
	InternalTransitions() []InternalTransition

	Setup()
	Update(ctx Context)
	ExecuteImmediate(ctx Context, rec *recorder.Recorder) error
	Execute(ctx Context) ([]Fence, error)
}

// Base is a data-driven, embeddable Pass implementation. A concrete pass
// either constructs a Base directly (the common case: a single draw or
// dispatch with a static requirement list and no dynamic declarations) or
// embeds Base and overrides specific methods for passes that need dynamic
// per-frame behavior.
type Base struct {
	PassName     string
	Prefixes     []types.ResourceIdentifier
	Queue        types.QueueKind
	GeometryPass bool
	Mask         RunMask
	Requirements []Requirement
	Transitions  []InternalTransition
	Insert       *InsertPoint

	SetupFunc            func()
	UpdateFunc           func(ctx Context)
	ExecuteImmediateFunc func(ctx Context, rec *recorder.Recorder) error
	ExecuteFunc          func(ctx Context) ([]Fence, error)
}

func (b *Base) Name() string                                  { return b.PassName }
func (b *Base) AllowedPrefixes() []types.ResourceIdentifier    { return b.Prefixes }
func (b *Base) QueueKind() types.QueueKind                     { return b.Queue }
func (b *Base) IsGeometryPass() bool                           { return b.GeometryPass }
func (b *Base) RunMask() RunMask                               { return b.Mask }
func (b *Base) StaticRequirements() []Requirement              { return b.Requirements }
func (b *Base) InternalTransitions() []InternalTransition      { return b.Transitions }

// InsertPoint returns the pass's placement constraint and true, or
// (zero value, false) for a base pass with no declared constraint.
func (b *Base) InsertPoint() (InsertPoint, bool) {
	if b.Insert == nil {
		return InsertPoint{}, false
	}
	return *b.Insert, true
}

func (b *Base) Setup() {
	if b.SetupFunc != nil {
		b.SetupFunc()
	}
}

func (b *Base) Update(ctx Context) {
	if b.UpdateFunc != nil {
		b.UpdateFunc(ctx)
	}
}

func (b *Base) ExecuteImmediate(ctx Context, rec *recorder.Recorder) error {
	if b.ExecuteImmediateFunc != nil {
		return b.ExecuteImmediateFunc(ctx, rec)
	}
	return nil
}

func (b *Base) Execute(ctx Context) ([]Fence, error) {
	if b.ExecuteFunc != nil {
		return b.ExecuteFunc(ctx)
	}
	return nil, nil
}

var _ Pass = (*Base)(nil)
