package services

import (
	"fmt"

	"bankcore/internal/core"
)

// AssertNotDuplicate fails with core.ErrDuplicateDefinition when existing
// holds another definition of the same owner describing the same standing
// order as candidate. The definition sharing candidate's ID is skipped, so
// an unchanged update never collides with itself; ID 0 means a new
// definition.
func AssertNotDuplicate(candidate core.RecurringDefinition, existing []core.RecurringDefinition) error {
	for _, d := range existing {
		if candidate.ID != 0 && d.ID == candidate.ID {
			continue
		}
		if d.OwnerID != candidate.OwnerID {
			continue
		}
		if d.SameOrder(candidate) {
			return fmt.Errorf("matches definition %d: %w", d.ID, core.ErrDuplicateDefinition)
		}
	}
	return nil
}
