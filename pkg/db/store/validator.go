package store

import "sync"

// RowValidator checks the full column set of a row before it is written.
type RowValidator func(values map[string]any) error

var (
	rowValidatorsMu sync.RWMutex
	rowValidators   = map[string]RowValidator{}
)

// RegisterRowValidator installs fn for every Record saved to table, so the
// generic record path enforces the same column rules as typed entities.
// A later registration for the same table replaces the earlier one.
func RegisterRowValidator(table string, fn RowValidator) {
	rowValidatorsMu.Lock()
	defer rowValidatorsMu.Unlock()
	rowValidators[table] = fn
}

func rowValidator(table string) RowValidator {
	rowValidatorsMu.RLock()
	defer rowValidatorsMu.RUnlock()
	return rowValidators[table]
}
