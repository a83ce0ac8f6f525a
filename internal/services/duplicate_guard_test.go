package services

import (
	"errors"
	"testing"

	"bankcore/internal/core"
)

func TestAssertNotDuplicate(t *testing.T) {
	due := core.NewDate(2024, 4, 1)
	stored := definition(1, 1000, "PL-0002", due)
	stored.ID = 5

	tests := []struct {
		name    string
		mutate  func(d *core.RecurringDefinition)
		wantDup bool
	}{
		{"identical", func(d *core.RecurringDefinition) {}, true},
		{"different amount", func(d *core.RecurringDefinition) { d.Amount = core.Money{Cents: 1001} }, false},
		{"different receiver", func(d *core.RecurringDefinition) { d.ReceiverName = "Other" }, false},
		{"different destination", func(d *core.RecurringDefinition) { d.DestinationAccount = "PL-0003" }, false},
		{"different due date", func(d *core.RecurringDefinition) { d.NextDueDate = core.NewDate(2024, 4, 2) }, false},
		{"different category", func(d *core.RecurringDefinition) { d.Category = core.Health }, false},
		{"different title", func(d *core.RecurringDefinition) { d.Title = "rent " }, false},
		{"other owner", func(d *core.RecurringDefinition) { d.OwnerID = 2 }, false},
		{"same definition updated", func(d *core.RecurringDefinition) { d.ID = 5 }, false},
		{"other stored definition", func(d *core.RecurringDefinition) { d.ID = 6 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := definition(1, 1000, "PL-0002", due)
			tt.mutate(&candidate)

			err := AssertNotDuplicate(candidate, []core.RecurringDefinition{stored})
			if got := errors.Is(err, core.ErrDuplicateDefinition); got != tt.wantDup {
				t.Errorf("AssertNotDuplicate() error = %v, want duplicate %v", err, tt.wantDup)
			}
		})
	}
}

func TestAssertNotDuplicate_Empty(t *testing.T) {
	if err := AssertNotDuplicate(definition(1, 1, "X", core.NewDate(2024, 1, 1)), nil); err != nil {
		t.Errorf("AssertNotDuplicate(nil) = %v", err)
	}
}
