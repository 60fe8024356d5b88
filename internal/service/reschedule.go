package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/period"
)

// RescheduleEngine relocates commitments between periods. Breakdown
// children are never moved with their parent; each commitment keeps its
// own period until rescheduled itself.
type RescheduleEngine struct {
	ledger *Ledger
}

func NewRescheduleEngine(ledger *Ledger) *RescheduleEngine {
	return &RescheduleEngine{ledger: ledger}
}

// Reschedule moves a commitment to the period containing newDate at
// newTf, keeping its section. The destination capacity check excludes
// the commitment's own current slot.
func (e *RescheduleEngine) Reschedule(ctx context.Context, commitmentID uint, newDate time.Time, newTf model.Timeframe) error {
	c, ok := e.ledger.Get(commitmentID)
	if !ok {
		return fmt.Errorf("commitment %d not in ledger", commitmentID)
	}
	if !newTf.Valid() {
		return &ValidationError{Field: "timeframe", Reason: "unknown timeframe"}
	}
	if !e.ledger.CanAdd(c.Section, newTf, newDate, &c.ID) {
		return &CapacityExceededError{
			Section:   c.Section,
			Timeframe: newTf,
			Limit:     e.ledger.limits.Limit(c.Section, newTf),
		}
	}

	c.Timeframe = newTf
	c.PeriodStart = period.Start(newTf, newDate)
	c.SortOrder = e.ledger.nextSortOrder(c.Section, newTf, newDate)
	return e.ledger.Update(ctx, c)
}

// PushToNext relocates a commitment one period forward at its own
// timeframe.
func (e *RescheduleEngine) PushToNext(ctx context.Context, commitmentID uint) error {
	c, ok := e.ledger.Get(commitmentID)
	if !ok {
		return fmt.Errorf("commitment %d not in ledger", commitmentID)
	}
	return e.Reschedule(ctx, commitmentID, period.Next(c.Timeframe, c.PeriodStart), c.Timeframe)
}
