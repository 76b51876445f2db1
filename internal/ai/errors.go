package ai

import "errors"

// ErrUnavailable marks provider-side failures: missing configuration,
// network/timeout errors, quota or auth rejections, and malformed
// responses. Callers match it with errors.Is to decide whether to
// degrade or retry.
var ErrUnavailable = errors.New("ai provider unavailable")
