package callgraph

import "errors"

// ErrInputMalformed is returned when a call-graph dump violates the section
// or record grammar: a duplicate section header, an unreadable hex token, or
// a truncated direct-call pair.
var ErrInputMalformed = errors.New("callgraph: malformed input")
