package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/period"
)

// AvailableBreakdownTimeframes returns the timeframes a commitment at
// tf may be broken down into, highest first. The set follows period
// containment, not a fixed step: yearly may skip straight to weekly and
// weekly goes directly to daily.
func AvailableBreakdownTimeframes(tf model.Timeframe) []model.Timeframe {
	switch tf {
	case model.TimeframeYearly:
		return []model.Timeframe{model.TimeframeMonthly, model.TimeframeWeekly}
	case model.TimeframeMonthly:
		return []model.Timeframe{model.TimeframeWeekly, model.TimeframeDaily}
	case model.TimeframeWeekly:
		return []model.Timeframe{model.TimeframeDaily}
	}
	return nil
}

// BreakdownEngine decomposes a commitment into lower-timeframe child
// commitments without moving or deleting the parent.
type BreakdownEngine struct {
	ledger *Ledger
}

func NewBreakdownEngine(ledger *Ledger) *BreakdownEngine {
	return &BreakdownEngine{ledger: ledger}
}

// CreateChild creates a commitment one or more hierarchy levels below
// the parent, bound to the period containing date. The child keeps the
// parent's task and section and records the parent linkage.
func (e *BreakdownEngine) CreateChild(ctx context.Context, parentID uint, target model.Timeframe, date time.Time) (*model.Commitment, error) {
	parent, ok := e.ledger.Get(parentID)
	if !ok {
		return nil, fmt.Errorf("commitment %d not in ledger", parentID)
	}
	if !timeframeAllowed(parent.Timeframe, target) {
		return nil, &BreakdownNotAllowedError{From: parent.Timeframe, To: target}
	}

	childStart, childEnd := period.Bounds(target, date)
	parentStart, parentEnd := period.Bounds(parent.Timeframe, parent.PeriodStart)
	if !childStart.Before(parentEnd) || !childEnd.After(parentStart) {
		return nil, &BreakdownNotAllowedError{From: parent.Timeframe, To: target, Reason: "slot outside the parent period"}
	}
	for _, child := range e.ledger.ChildrenOf(parentID) {
		if child.Timeframe == target && period.Same(target, child.PeriodStart, date) {
			return nil, &BreakdownNotAllowedError{From: parent.Timeframe, To: target, Reason: "slot already used"}
		}
	}

	return e.ledger.Create(ctx, CommitmentParams{
		UserID:             parent.UserID,
		TaskID:             parent.TaskID,
		Timeframe:          target,
		Section:            parent.Section,
		Date:               date,
		ParentCommitmentID: &parent.ID,
	})
}

// AvailableSlots enumerates the sub-periods of the target granularity
// within the parent's period that no existing child occupies yet.
func (e *BreakdownEngine) AvailableSlots(parentID uint, target model.Timeframe) ([]time.Time, error) {
	parent, ok := e.ledger.Get(parentID)
	if !ok {
		return nil, fmt.Errorf("commitment %d not in ledger", parentID)
	}
	if !timeframeAllowed(parent.Timeframe, target) {
		return nil, &BreakdownNotAllowedError{From: parent.Timeframe, To: target}
	}

	var used []time.Time
	for _, child := range e.ledger.ChildrenOf(parentID) {
		if child.Timeframe == target {
			used = append(used, child.PeriodStart)
		}
	}

	start, end := period.Bounds(parent.Timeframe, parent.PeriodStart)
	var slots []time.Time
	for _, anchor := range period.StartsWithin(target, start, end) {
		taken := false
		for _, u := range used {
			if period.Same(target, u, anchor) {
				taken = true
				break
			}
		}
		if !taken {
			slots = append(slots, anchor)
		}
	}
	return slots, nil
}

// Descendants fetches the commitment's complete breakdown subtree,
// children before grandchildren, without re-querying the store.
func (e *BreakdownEngine) Descendants(parentID uint) []model.Commitment {
	return e.ledger.DescendantsOf(parentID)
}

func timeframeAllowed(from, to model.Timeframe) bool {
	for _, tf := range AvailableBreakdownTimeframes(from) {
		if tf == to {
			return true
		}
	}
	return false
}
