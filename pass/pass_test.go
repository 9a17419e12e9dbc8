package pass_test

import (
	"testing"

	"github.com/gogpu/rendergraph/pass"
	"github.com/gogpu/rendergraph/types"
)

func TestRunMask_Composition(t *testing.T) {
	tests := []struct {
		mask          pass.RunMask
		wantImmediate bool
		wantRetained  bool
	}{
		{pass.RunNone, false, false},
		{pass.RunImmediate, true, false},
		{pass.RunRetained, false, true},
		{pass.RunBoth, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.mask.String(), func(t *testing.T) {
			if got := tt.mask.HasImmediate(); got != tt.wantImmediate {
				t.Errorf("HasImmediate() = %v, want %v", got, tt.wantImmediate)
			}
			if got := tt.mask.HasRetained(); got != tt.wantRetained {
				t.Errorf("HasRetained() = %v, want %v", got, tt.wantRetained)
			}
		})
	}
}

func TestBase_DefaultsToNoInsertPoint(t *testing.T) {
	b := &pass.Base{PassName: "GBufferOpaque"}
	if _, ok := b.InsertPoint(); ok {
		t.Fatalf("a base pass with no Insert set must report no InsertPoint")
	}
}

func TestBase_InsertPointRoundTrips(t *testing.T) {
	b := &pass.Base{
		PassName: "SSAO",
		Insert: &pass.InsertPoint{
			Priority: 10,
			After:    []pass.Anchor{pass.AnchorAfterBase},
			Before:   []pass.Anchor{"LightingPass"},
		},
	}
	got, ok := b.InsertPoint()
	if !ok {
		t.Fatalf("expected an InsertPoint to be present")
	}
	if got.Priority != 10 || len(got.After) != 1 || got.After[0] != pass.AnchorAfterBase {
		t.Fatalf("unexpected InsertPoint: %+v", got)
	}
}

func TestBase_SetupAndUpdateHooksAreOptional(t *testing.T) {
	b := &pass.Base{PassName: "NoHooks"}
	b.Setup() // must not panic with nil hooks
	b.Update(nil)

	fences, err := b.Execute(nil)
	if err != nil || fences != nil {
		t.Fatalf("Execute() with no hook = (%v, %v), want (nil, nil)", fences, err)
	}
}

func TestBase_SetupHookInvoked(t *testing.T) {
	called := false
	b := &pass.Base{
		PassName:  "Hooked",
		SetupFunc: func() { called = true },
	}
	b.Setup()
	if !called {
		t.Fatalf("expected SetupFunc to be invoked")
	}
}

func TestBase_QueueKindAndGeometryFlag(t *testing.T) {
	b := &pass.Base{
		PassName:     "ShadowMap",
		Queue:        types.QueueCompute,
		GeometryPass: true,
	}
	if b.QueueKind() != types.QueueCompute {
		t.Fatalf("QueueKind() = %v, want QueueCompute", b.QueueKind())
	}
	if !b.IsGeometryPass() {
		t.Fatalf("expected IsGeometryPass() true")
	}
}
