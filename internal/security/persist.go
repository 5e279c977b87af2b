package security

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	keyOwner = "owner"
	keyMode  = "security"
)

// Save записывает запись в плоскую карту. Ячейка без владельца пишет
// только режим.
func (r *Record) Save(m map[string]string) {
	if r == nil {
		return
	}
	if r.IsOwned() {
		m[keyOwner] = r.Owner.String()
	}
	m[keyMode] = r.Mode.String()
}

// Load восстанавливает запись из плоской карты.
func (r *Record) Load(m map[string]string) error {
	var errs []error
	r.Owner = uuid.Nil
	if v, ok := m[keyOwner]; ok && v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", keyOwner, err))
		} else {
			r.Owner = id
		}
	}
	if v, ok := m[keyMode]; ok {
		mode, err := ParseMode(v)
		if err != nil {
			errs = append(errs, err)
		} else {
			r.Mode = mode
		}
	}
	return errors.Join(errs...)
}
