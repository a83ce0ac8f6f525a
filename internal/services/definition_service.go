package services

import (
	"context"
	"fmt"

	"bankcore/internal/core"
	"bankcore/internal/ledger"
	"bankcore/internal/log"
)

// DefaultUpcomingLimit is how many definitions Upcoming returns by default.
const DefaultUpcomingLimit = 3

// DefinitionService manages recurring definitions on behalf of their
// owners. The scheduler alone advances due dates after realization.
type DefinitionService struct {
	store  ledger.Store
	logger *log.Logger
}

func NewDefinitionService(store ledger.Store) *DefinitionService {
	return &DefinitionService{
		store:  store,
		logger: log.Default().WithComponent(log.ComponentRecurring),
	}
}

// Create validates d, rejects duplicates of the owner's definitions and
// stores it. The check and the insert share one atomic unit.
func (s *DefinitionService) Create(ctx context.Context, d core.RecurringDefinition) (core.RecurringDefinition, error) {
	d.ID = 0
	if err := d.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}

	var created core.RecurringDefinition
	err := s.store.WithinTx(ctx, func(tx ledger.Tx) error {
		owner, err := tx.Accounts().FindByID(ctx, d.OwnerID)
		if err != nil {
			return fmt.Errorf("find owner %d: %w", d.OwnerID, err)
		}
		if owner == nil {
			return fmt.Errorf("account %d: %w", d.OwnerID, core.ErrNotFound)
		}
		if owner.AccountNumber == d.DestinationAccount {
			return core.ErrSameAccount
		}
		existing, err := tx.Definitions().FindByOwner(ctx, d.OwnerID)
		if err != nil {
			return fmt.Errorf("list definitions of owner %d: %w", d.OwnerID, err)
		}
		if err := AssertNotDuplicate(d, existing); err != nil {
			return err
		}
		created, err = tx.Definitions().Insert(ctx, d)
		return err
	})
	if err != nil {
		return core.RecurringDefinition{}, err
	}

	s.logger.InfoContext(ctx, "Recurring definition created", log.NewFields().WithDefinition(created).ToSlice()...)
	return created, nil
}

// Update replaces definition id with d. Ownership and creation time are
// kept from the stored definition.
func (s *DefinitionService) Update(ctx context.Context, id int64, d core.RecurringDefinition) (core.RecurringDefinition, error) {
	d.ID = id
	if err := d.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}

	err := s.store.WithinTx(ctx, func(tx ledger.Tx) error {
		current, err := tx.Definitions().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find recurring definition %d: %w", id, err)
		}
		if current == nil {
			return fmt.Errorf("recurring definition %d: %w", id, core.ErrNotFound)
		}
		d.OwnerID = current.OwnerID
		d.CreatedAt = current.CreatedAt

		owner, err := tx.Accounts().FindByID(ctx, d.OwnerID)
		if err != nil {
			return fmt.Errorf("find owner %d: %w", d.OwnerID, err)
		}
		if owner != nil && owner.AccountNumber == d.DestinationAccount {
			return core.ErrSameAccount
		}

		existing, err := tx.Definitions().FindByOwner(ctx, d.OwnerID)
		if err != nil {
			return fmt.Errorf("list definitions of owner %d: %w", d.OwnerID, err)
		}
		if err := AssertNotDuplicate(d, existing); err != nil {
			return err
		}
		return tx.Definitions().Update(ctx, d)
	})
	if err != nil {
		return core.RecurringDefinition{}, err
	}

	s.logger.InfoContext(ctx, "Recurring definition updated", log.NewFields().WithDefinition(d).ToSlice()...)
	return d, nil
}

func (s *DefinitionService) Delete(ctx context.Context, id int64) error {
	ok, err := s.store.Definitions().ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find recurring definition %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("recurring definition %d: %w", id, core.ErrNotFound)
	}
	if err := s.store.Definitions().DeleteByID(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Recurring definition deleted", log.FieldDefinitionID, id)
	return nil
}

func (s *DefinitionService) Get(ctx context.Context, id int64) (core.RecurringDefinition, error) {
	d, err := s.store.Definitions().FindByID(ctx, id)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("find recurring definition %d: %w", id, err)
	}
	if d == nil {
		return core.RecurringDefinition{}, fmt.Errorf("recurring definition %d: %w", id, core.ErrNotFound)
	}
	return *d, nil
}

func (s *DefinitionService) ListByOwner(ctx context.Context, ownerID int64) ([]core.RecurringDefinition, error) {
	return s.store.Definitions().FindByOwner(ctx, ownerID)
}

func (s *DefinitionService) List(ctx context.Context, f ledger.DefinitionFilter) ([]core.RecurringDefinition, error) {
	return s.store.Definitions().Find(ctx, f)
}

// Upcoming returns the owner's next n definitions, soonest first.
func (s *DefinitionService) Upcoming(ctx context.Context, ownerID int64, n int) ([]core.RecurringDefinition, error) {
	if n <= 0 {
		n = DefaultUpcomingLimit
	}
	return s.store.Definitions().Find(ctx, ledger.DefinitionFilter{OwnerID: ownerID, Limit: n})
}
