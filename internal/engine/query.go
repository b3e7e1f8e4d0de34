package engine

import (
	"sort"

	"github.com/meridianhq/execore/internal/model"
)

// Order returns the aggregate for a client order id. The returned
// order is owned by the engine and must be treated as read only.
func (e *Engine) Order(clOrdID model.ClientOrderID) (*model.Order, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	order, ok := e.orders[clOrdID]
	return order, ok
}

// Orders returns every known order sorted by client order id.
func (e *Engine) Orders() []*model.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	orders := make([]*model.Order, 0, len(e.orders))
	for _, order := range e.orders {
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ClOrdID() < orders[j].ClOrdID() })
	return orders
}

// WorkingOrders returns orders still working at the venue, sorted by
// client order id.
func (e *Engine) WorkingOrders() []*model.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	orders := make([]*model.Order, 0, len(e.orders))
	for _, order := range e.orders {
		if order.IsWorking() {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ClOrdID() < orders[j].ClOrdID() })
	return orders
}

// Position returns a snapshot of the position with the given id.
func (e *Engine) Position(positionID model.PositionID) (model.PositionSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	position, ok := e.positions[positionID]
	if !ok {
		return model.PositionSnapshot{}, false
	}
	return position.Snapshot(), true
}

// OpenPositions returns snapshots of every non-flat position sorted by
// position id.
func (e *Engine) OpenPositions() []model.PositionSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snapshots := make([]model.PositionSnapshot, 0, len(e.positions))
	for _, position := range e.positions {
		if position.IsOpen() {
			snapshots = append(snapshots, position.Snapshot())
		}
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].PositionID < snapshots[j].PositionID })
	return snapshots
}

// Positions returns snapshots of every position the engine has seen,
// open or flat, sorted by position id.
func (e *Engine) Positions() []model.PositionSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snapshots := make([]model.PositionSnapshot, 0, len(e.positions))
	for _, position := range e.positions {
		snapshots = append(snapshots, position.Snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].PositionID < snapshots[j].PositionID })
	return snapshots
}

// Account returns the latest account state seen for the account.
func (e *Engine) Account(accountID model.AccountID) (*model.AccountState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state, ok := e.accounts[accountID]
	return state, ok
}

// ProcessedCount reports events applied since the engine started.
func (e *Engine) ProcessedCount() uint64 { return e.processed.Load() }

// FailedCount reports events rejected since the engine started.
func (e *Engine) FailedCount() uint64 { return e.failed.Load() }
