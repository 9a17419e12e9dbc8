// Package hal defines the GPU abstraction contract the scheduler core
// compiles and executes against (§6 "GPU abstraction contract"). It is
// implementation-free: the core never imports a concrete backend, only
// these interfaces, and a caller wires in a real backend (or hal/noop, the
// reference no-op implementation used by tests and the demo command).
//
// # Layout
//
//   - Device creates the per-queue command allocators/lists, timelines, and
//     descriptor heaps the executor needs, answers allocation-info queries
//     for the aliasing candidate collector, and creates an Allocator.
//   - CommandList records the fixed vocabulary of operations the batcher's
//     transitions and a pass body can emit: barriers, copies, clears,
//     push constants.
//   - Queue submits recorded lists and signals/waits on Timelines — the
//     cross-queue synchronization primitive the batcher's Signal/Wait
//     bookkeeping targets.
//   - Allocator places resources in device memory, including aliased
//     placements sharing one backing allocation (§4.6).
//
// # Thread safety
//
// Unless stated otherwise, HAL objects are not safe for concurrent use.
// The executor's thread-local per-queue command-list context (§5) is what
// makes single-threaded use of a CommandList safe in practice.
package hal
