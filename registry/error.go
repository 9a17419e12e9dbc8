package registry

import "errors"

// ErrOutsideAllowlist is returned by View.RequestShared when the requested
// identifier is not covered by the view's declared namespace prefixes.
var ErrOutsideAllowlist = errors.New("registry: resource identifier outside declared allow-list")
