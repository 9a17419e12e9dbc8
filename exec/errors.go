package exec

import "errors"

// ErrStaleHandle is returned when a planned transition or bytecode op
// references a handle whose generation no longer matches its registry
// slot — the resource was replaced or released between compile and
// execute (§7 "Backing generation changed between compile and execute").
var ErrStaleHandle = errors.New("exec: stale resource handle")

// ErrNoRuntimeTracker is returned when a resource id a batch planned a
// transition against has no live runtime tracker at execute time.
var ErrNoRuntimeTracker = errors.New("exec: no runtime tracker for resource")
