// ABOUTME: Domain-wide error sentinels
// ABOUTME: Root of every configuration failure so callers can match with errors.Is
package domain

import "errors"

// ErrConfiguration marks invalid construction parameters or mismatched
// components. Callers must rebuild with valid parameters.
var ErrConfiguration = errors.New("configuration error")
