package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
)

func TestReschedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, "dentist")
	c := env.mustCommit(t, task.ID, model.TimeframeDaily, model.SectionPrimary, day(2026, time.March, 18))

	require.NoError(t, env.planner.Reschedule(ctx, c.ID, day(2026, time.March, 25), model.TimeframeWeekly))

	got, ok := env.planner.Commitment(c.ID)
	require.True(t, ok)
	assert.Equal(t, model.TimeframeWeekly, got.Timeframe)
	assert.True(t, got.PeriodStart.Equal(day(2026, time.March, 22)), "anchor normalized to week start, got %v", got.PeriodStart)
	assert.Equal(t, model.SectionPrimary, got.Section, "section never changes on reschedule")
}

func TestRescheduleCapacityExceeded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	today := day(2026, time.March, 18)
	tomorrow := day(2026, time.March, 19)

	for i := 0; i < 3; i++ {
		env.mustCommit(t, env.mustCreateTask(t, "busy").ID, model.TimeframeDaily, model.SectionPrimary, tomorrow)
	}
	c := env.mustCommit(t, env.mustCreateTask(t, "move me").ID, model.TimeframeDaily, model.SectionPrimary, today)

	err := env.planner.Reschedule(ctx, c.ID, tomorrow, model.TimeframeDaily)
	require.Error(t, err)
	assert.True(t, IsCapacityExceeded(err))

	got, _ := env.planner.Commitment(c.ID)
	assert.True(t, got.PeriodStart.Equal(today), "failed reschedule leaves the commitment in place")
}

func TestRescheduleExcludesOwnSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	today := day(2026, time.March, 18)

	// Fill the daily bucket to its limit of 3, then reschedule one of
	// its own members within the same period: the mover's current slot
	// must not count against the destination.
	var c *model.Commitment
	for i := 0; i < 3; i++ {
		c = env.mustCommit(t, env.mustCreateTask(t, "slot").ID, model.TimeframeDaily, model.SectionPrimary, today)
	}

	require.NoError(t, env.planner.Reschedule(ctx, c.ID, today, model.TimeframeDaily))
}

func TestPushToNext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		tf       model.Timeframe
		at       time.Time
		wantNext time.Time
	}{
		{model.TimeframeDaily, day(2026, time.March, 18), day(2026, time.March, 19)},
		{model.TimeframeWeekly, day(2026, time.March, 18), day(2026, time.March, 22)},
		{model.TimeframeMonthly, day(2026, time.March, 18), day(2026, time.April, 1)},
		{model.TimeframeYearly, day(2026, time.March, 18), day(2027, time.January, 1)},
	}
	for _, tt := range tests {
		t.Run(string(tt.tf), func(t *testing.T) {
			task := env.mustCreateTask(t, "push "+string(tt.tf))
			c := env.mustCommit(t, task.ID, tt.tf, model.SectionOverflow, tt.at)

			require.NoError(t, env.planner.PushToNext(ctx, c.ID))

			got, _ := env.planner.Commitment(c.ID)
			assert.Equal(t, tt.tf, got.Timeframe, "push keeps the timeframe")
			assert.True(t, got.PeriodStart.Equal(tt.wantNext), "got %v", got.PeriodStart)
		})
	}
}

func TestRescheduleLeavesChildrenInPlace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, "Learn Spanish")
	yearly := env.mustCommit(t, task.ID, model.TimeframeYearly, model.SectionPrimary, day(2026, time.January, 1))
	march, err := env.planner.BreakDown(ctx, yearly.ID, model.TimeframeMonthly, day(2026, time.March, 1))
	require.NoError(t, err)

	require.NoError(t, env.planner.PushToNext(ctx, yearly.ID))

	gotParent, _ := env.planner.Commitment(yearly.ID)
	assert.True(t, gotParent.PeriodStart.Equal(day(2027, time.January, 1)))

	gotChild, _ := env.planner.Commitment(march.ID)
	assert.True(t, gotChild.PeriodStart.Equal(day(2026, time.March, 1)), "breakdown children keep their own periods")
	require.NotNil(t, gotChild.ParentCommitmentID)
	assert.Equal(t, yearly.ID, *gotChild.ParentCommitmentID)
}
