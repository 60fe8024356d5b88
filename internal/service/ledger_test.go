package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
)

func TestLedgerCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	today := day(2026, time.March, 18)

	// Primary is capped at 3 daily commitments.
	var last *model.Commitment
	for i := 0; i < 3; i++ {
		task := env.mustCreateTask(t, "task")
		last = env.mustCommit(t, task.ID, model.TimeframeDaily, model.SectionPrimary, today)
	}

	remaining, limited := env.planner.CapacityRemaining(model.SectionPrimary, model.TimeframeDaily, today)
	assert.True(t, limited)
	assert.Equal(t, 0, remaining)

	extra := env.mustCreateTask(t, "one too many")
	_, err := env.planner.CommitTask(ctx, extra.ID, model.TimeframeDaily, model.SectionPrimary, today)
	require.Error(t, err)
	assert.True(t, IsCapacityExceeded(err))

	var ce *CapacityExceededError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.Limit)

	// Overflow is unlimited.
	_, err = env.planner.CommitTask(ctx, extra.ID, model.TimeframeDaily, model.SectionOverflow, today)
	require.NoError(t, err)

	// Freeing a slot lets the add through.
	require.NoError(t, env.planner.RemoveCommitment(ctx, last.ID))
	_, err = env.planner.CommitTask(ctx, extra.ID, model.TimeframeDaily, model.SectionPrimary, today)
	require.NoError(t, err)
}

func TestLedgerSortOrderAppends(t *testing.T) {
	env := newTestEnv(t)
	today := day(2026, time.March, 18)

	a := env.mustCommit(t, env.mustCreateTask(t, "a").ID, model.TimeframeWeekly, model.SectionPrimary, today)
	b := env.mustCommit(t, env.mustCreateTask(t, "b").ID, model.TimeframeWeekly, model.SectionPrimary, today)

	assert.Equal(t, 0, a.SortOrder)
	assert.Equal(t, b.SortOrder, a.SortOrder+1)
}

func TestLedgerBucketFiltersByPeriod(t *testing.T) {
	env := newTestEnv(t)

	task := env.mustCreateTask(t, "report")
	env.mustCommit(t, task.ID, model.TimeframeDaily, model.SectionPrimary, day(2026, time.March, 18))

	// Same day, different clock time.
	afternoon := time.Date(2026, time.March, 18, 16, 30, 0, 0, time.UTC)
	assert.Len(t, env.planner.CommitmentsFor(model.SectionPrimary, model.TimeframeDaily, afternoon), 1)

	// Next day is empty.
	assert.Empty(t, env.planner.CommitmentsFor(model.SectionPrimary, model.TimeframeDaily, day(2026, time.March, 19)))

	// Other timeframe is a different bucket entirely.
	assert.Empty(t, env.planner.CommitmentsFor(model.SectionPrimary, model.TimeframeWeekly, day(2026, time.March, 18)))
}

func TestLedgerCascadeDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, "learn spanish")
	root := env.mustCommit(t, task.ID, model.TimeframeYearly, model.SectionPrimary, day(2026, time.January, 1))

	// Two levels of breakdown: yearly -> monthly -> weekly.
	month, err := env.planner.BreakDown(ctx, root.ID, model.TimeframeMonthly, day(2026, time.March, 1))
	require.NoError(t, err)
	_, err = env.planner.BreakDown(ctx, month.ID, model.TimeframeWeekly, day(2026, time.March, 1))
	require.NoError(t, err)

	require.Len(t, env.planner.BreakdownSubtree(root.ID), 2)

	require.NoError(t, env.planner.RemoveCommitment(ctx, root.ID))

	assert.Empty(t, env.planner.CommitmentsForTask(task.ID))
	require.NoError(t, env.planner.Refresh(ctx))
	assert.Empty(t, env.planner.CommitmentsForTask(task.ID), "store still holds subtree entries")
}

func TestLedgerDeleteChildKeepsParent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, "learn spanish")
	root := env.mustCommit(t, task.ID, model.TimeframeYearly, model.SectionPrimary, day(2026, time.January, 1))
	month, err := env.planner.BreakDown(ctx, root.ID, model.TimeframeMonthly, day(2026, time.March, 1))
	require.NoError(t, err)

	require.NoError(t, env.planner.RemoveCommitment(ctx, month.ID))

	_, ok := env.planner.Commitment(root.ID)
	assert.True(t, ok, "deleting a child must never delete its parent")
}
