package leadstore

import "errors"

// ErrNotFound marks a lead reference the CRM no longer knows, or one that
// has unsubscribed since the plan was generated.
var ErrNotFound = errors.New("lead not found")
