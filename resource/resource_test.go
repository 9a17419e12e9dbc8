package resource_test

import (
	"testing"

	"github.com/gogpu/rendergraph/resource"
)

func TestNewTexture_NotMaterializedUntilCalled(t *testing.T) {
	tex := resource.NewTexture("GBuffer.Normals", resource.TextureSpec{
		MipLevels: 4,
		ArraySize: 1,
	})

	if tex.IsMaterialized() {
		t.Fatalf("a freshly constructed texture must not be materialized")
	}
	if _, ok := tex.Tracker(); ok {
		t.Fatalf("Tracker() must fail before Materialize()")
	}

	tex.Materialize()
	if !tex.IsMaterialized() {
		t.Fatalf("expected materialized after Materialize()")
	}
	tr, ok := tex.Tracker()
	if !ok || tr == nil {
		t.Fatalf("expected a live tracker after Materialize()")
	}
	if tr.TotalMips() != 4 {
		t.Fatalf("tracker mip count = %d, want 4", tr.TotalMips())
	}
}

func TestNewBuffer_AlwaysMaterialized(t *testing.T) {
	buf := resource.NewBuffer("Upload.Staging", resource.BufferSpec{ByteSize: 1024})
	if !buf.IsMaterialized() {
		t.Fatalf("a buffer must always report materialized")
	}
	if _, ok := buf.Tracker(); !ok {
		t.Fatalf("a buffer's tracker must be present immediately")
	}
}

func TestDynamicWrapper_ForwardsIDAndRebinds(t *testing.T) {
	a := resource.NewBuffer("A", resource.BufferSpec{ByteSize: 16})
	b := resource.NewBuffer("B", resource.BufferSpec{ByteSize: 16})
	wrapper := resource.NewDynamicWrapper("Wrapper", a)

	if wrapper.ID() != a.ID() {
		t.Fatalf("wrapper should forward to a's id before rebinding")
	}

	wrapper.Rebind(b)
	if wrapper.ID() != b.ID() {
		t.Fatalf("wrapper should forward to b's id after rebinding")
	}
}

func TestRebind_PanicsOnNonWrapper(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Rebind on a non-wrapper to panic")
		}
	}()
	buf := resource.NewBuffer("A", resource.BufferSpec{ByteSize: 16})
	buf.Rebind(buf)
}

func TestResource_GlobalIDsAreUnique(t *testing.T) {
	a := resource.NewBuffer("A", resource.BufferSpec{})
	b := resource.NewBuffer("B", resource.BufferSpec{})
	if a.ID() == b.ID() {
		t.Fatalf("distinct resources must get distinct global ids")
	}
}
