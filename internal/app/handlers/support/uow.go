package support

import (
	"context"

	"rateplans/internal/app/uow"
)

// BeginReadOnlyUnit reuses the unit already bound to ctx or opens a read-only one.
// The returned cleanup is nil when the unit was reused.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	cleanup := func() {
		_ = unit.Rollback(execCtx)
	}
	return unit, execCtx, cleanup, nil
}

// ManagedUnit is a write unit a handler opened itself because no transaction
// middleware provided one.
type ManagedUnit struct {
	Unit      uow.UnitOfWork
	Ctx       context.Context
	managed   bool
	committed bool
}

// BeginWriteUnit reuses the unit bound to ctx or opens a managed write unit.
// Callers must defer Close and call Commit once their work succeeded.
func BeginWriteUnit(ctx context.Context, factory uow.UoWFactory) (*ManagedUnit, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return &ManagedUnit{Unit: unit, Ctx: ctx}, nil
	}
	if factory == nil {
		return nil, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &ManagedUnit{Unit: unit, Ctx: uow.Bind(ctx, unit), managed: true}, nil
}

// Commit is a no-op for units owned by an outer transaction.
func (m *ManagedUnit) Commit() error {
	if !m.managed || m.committed {
		return nil
	}
	if err := m.Unit.Commit(m.Ctx); err != nil {
		return err
	}
	m.committed = true
	return nil
}

func (m *ManagedUnit) Close() {
	if m.managed && !m.committed {
		_ = m.Unit.Rollback(m.Ctx)
	}
}
