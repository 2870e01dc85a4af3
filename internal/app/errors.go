package app

import "errors"

// Sentinel errors for common application errors
var (
	ErrHistoryDisabled = errors.New("import history is disabled (set history_enabled: true)")
	ErrUnresolved      = errors.New("duplicates left unresolved")
	ErrNotReady        = errors.New("spreadsheet has problems")
)
