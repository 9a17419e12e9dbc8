package registry_test

import (
	"errors"
	"testing"

	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/types"
)

func id(dotted string) types.ResourceIdentifier {
	return types.ParseResourceIdentifier(dotted)
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := registry.NewRegistry[string]()

	h := r.RegisterOrUpdate(id("Builtin.GBuffer.Normals"), "normals-v1", 1, 8, 1)
	got, ok := r.Resolve(h)
	if !ok || got != "normals-v1" {
		t.Fatalf("Resolve() = (%q, %v), want (\"normals-v1\", true)", got, ok)
	}
}

func TestRegistry_ReplacementStalesOldHandle(t *testing.T) {
	r := registry.NewRegistry[string]()
	name := id("Builtin.GBuffer.Normals")

	old := r.RegisterOrUpdate(name, "normals-v1", 1, 8, 1)
	fresh := r.RegisterOrUpdate(name, "normals-v2", 2, 8, 1)

	if _, ok := r.Resolve(old); ok {
		t.Fatalf("old handle should be stale after replacement")
	}
	got, ok := r.Resolve(fresh)
	if !ok || got != "normals-v2" {
		t.Fatalf("Resolve(fresh) = (%q, %v), want (\"normals-v2\", true)", got, ok)
	}
}

func TestRegistry_MakeHandleUnknownIsInvalid(t *testing.T) {
	r := registry.NewRegistry[string]()
	h := r.MakeHandle(id("Never.Registered"), 1, 1)
	if h.IsValid() {
		t.Fatalf("MakeHandle on an unknown identifier must be invalid")
	}
	if _, ok := r.Resolve(h); ok {
		t.Fatalf("Resolve of an invalid handle must fail")
	}
}

func TestRegistry_MakeHandleThenReplaceGoesStale(t *testing.T) {
	r := registry.NewRegistry[string]()
	name := id("Builtin.Depth")
	r.RegisterOrUpdate(name, "depth-v1", 1, 1, 1)

	h := r.MakeHandle(name, 1, 1)
	if !h.IsValid() {
		t.Fatalf("MakeHandle on a present resource must be valid")
	}

	r.RegisterOrUpdate(name, "depth-v2", 2, 1, 1)
	if _, ok := r.Resolve(h); ok {
		t.Fatalf("handle made before a replacement must go stale")
	}
}

func TestRegistry_InternKeyIsStable(t *testing.T) {
	r := registry.NewRegistry[string]()
	name := id("Builtin.Shadow.Atlas")

	a := r.InternKey(name)
	r.RegisterOrUpdate(name, "atlas", 1, 1, 1)
	b := r.InternKey(name)

	if a != b {
		t.Fatalf("InternKey must return the same slot for the same identifier: %d != %d", a, b)
	}
}

func TestRegistry_AnonymousRegistration(t *testing.T) {
	r := registry.NewRegistry[string]()
	h := r.RegisterAnonymous("scratch-buffer", 42, 1, 1)

	got, ok := r.Resolve(h)
	if !ok || got != "scratch-buffer" {
		t.Fatalf("Resolve(anonymous) = (%q, %v), want (\"scratch-buffer\", true)", got, ok)
	}

	r.ReleaseAnonymous(h)
	if _, ok := r.Resolve(h); ok {
		t.Fatalf("anonymous handle must resolve to nothing after release")
	}
}

func TestEphemeralHandle_BypassesRegistry(t *testing.T) {
	resource := "staging-upload"
	h := registry.NewEphemeralHandle(&resource, 7, 1, 1)

	if !h.IsEphemeral() {
		t.Fatalf("expected an ephemeral handle")
	}

	// An ephemeral handle resolves without ever touching the registry's slot
	// table, so an unrelated (even empty) registry can dereference it.
	r := registry.NewRegistry[string]()
	got, ok := r.Resolve(h)
	if !ok || got != resource {
		t.Fatalf("ephemeral resolve = (%q, %v)", got, ok)
	}
}

func TestView_RequestShared_OutsideAllowlistFails(t *testing.T) {
	r := registry.NewRegistry[string]()
	r.RegisterOrUpdate(id("Builtin.GBuffer.Normals"), "normals", 1, 8, 1)
	r.RegisterOrUpdate(id("User.ShadowMap"), "shadow", 2, 1, 1)

	view := registry.NewView[string](r, id("Builtin.GBuffer"))

	if _, err := view.RequestShared(id("Builtin.GBuffer.Normals"), 8, 1); err != nil {
		t.Fatalf("expected allowed identifier to succeed, got %v", err)
	}
	_, err := view.RequestShared(id("User.ShadowMap"), 1, 1)
	if !errors.Is(err, registry.ErrOutsideAllowlist) {
		t.Fatalf("expected ErrOutsideAllowlist, got %v", err)
	}
}

func TestView_UnrestrictedWhenNoAllowlistDeclared(t *testing.T) {
	r := registry.NewRegistry[string]()
	r.RegisterOrUpdate(id("Anything.Goes"), "v", 1, 1, 1)

	view := registry.NewView[string](r)
	if _, err := view.RequestShared(id("Anything.Goes"), 1, 1); err != nil {
		t.Fatalf("a view with no declared prefixes should not restrict access: %v", err)
	}
}
