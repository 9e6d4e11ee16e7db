package breaker

import "errors"

// ErrOpen is reported when a call is refused without reaching the dependency.
var ErrOpen = errors.New("circuit breaker open")
