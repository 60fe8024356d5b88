package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
)

func TestMoveWithinSection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	today := day(2026, time.March, 18)

	a := env.mustCommit(t, env.mustCreateTask(t, "a").ID, model.TimeframeDaily, model.SectionPrimary, today)
	b := env.mustCommit(t, env.mustCreateTask(t, "b").ID, model.TimeframeDaily, model.SectionPrimary, today)
	c := env.mustCommit(t, env.mustCreateTask(t, "c").ID, model.TimeframeDaily, model.SectionPrimary, today)

	// Drag the third commitment to the top.
	require.NoError(t, env.planner.MoveWithinSection(ctx, c.ID, 0))

	views := env.planner.CommitmentsFor(model.SectionPrimary, model.TimeframeDaily, today)
	require.Len(t, views, 3)
	assert.Equal(t, []uint{c.ID, a.ID, b.ID}, viewIDs(views))
	for i, view := range views {
		assert.Equal(t, i, view.Commitment.SortOrder)
	}

	// The batch persisted: a fresh mirror sees the same order.
	require.NoError(t, env.planner.Refresh(ctx))
	views = env.planner.CommitmentsFor(model.SectionPrimary, model.TimeframeDaily, today)
	assert.Equal(t, []uint{c.ID, a.ID, b.ID}, viewIDs(views))
}

func TestMoveWithinSectionClampsIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	today := day(2026, time.March, 18)

	a := env.mustCommit(t, env.mustCreateTask(t, "a").ID, model.TimeframeDaily, model.SectionPrimary, today)
	b := env.mustCommit(t, env.mustCreateTask(t, "b").ID, model.TimeframeDaily, model.SectionPrimary, today)

	require.NoError(t, env.planner.MoveWithinSection(ctx, a.ID, 99))
	views := env.planner.CommitmentsFor(model.SectionPrimary, model.TimeframeDaily, today)
	assert.Equal(t, []uint{b.ID, a.ID}, viewIDs(views))
}

func TestMoveWithinSectionSkipsCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	today := day(2026, time.March, 18)

	doneTask := env.mustCreateTask(t, "done")
	env.mustCommit(t, doneTask.ID, model.TimeframeDaily, model.SectionPrimary, today)
	require.NoError(t, env.planner.ToggleCompletion(ctx, doneTask.ID))

	a := env.mustCommit(t, env.mustCreateTask(t, "a").ID, model.TimeframeDaily, model.SectionPrimary, today)
	b := env.mustCommit(t, env.mustCreateTask(t, "b").ID, model.TimeframeDaily, model.SectionPrimary, today)

	// The incomplete ordering is [a, b]; moving b to 0 ignores the
	// completed commitment entirely.
	require.NoError(t, env.planner.MoveWithinSection(ctx, b.ID, 0))

	views := env.planner.CommitmentsFor(model.SectionPrimary, model.TimeframeDaily, today)
	require.Len(t, views, 3)
	assert.Equal(t, b.ID, views[0].Commitment.ID)
	assert.Equal(t, a.ID, views[1].Commitment.ID)
	assert.True(t, views[2].Task.IsCompleted, "completed commitments trail the list")
}

func TestMoveToSection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	today := day(2026, time.March, 18)

	a := env.mustCommit(t, env.mustCreateTask(t, "a").ID, model.TimeframeDaily, model.SectionPrimary, today)
	b := env.mustCommit(t, env.mustCreateTask(t, "b").ID, model.TimeframeDaily, model.SectionPrimary, today)
	o := env.mustCommit(t, env.mustCreateTask(t, "o").ID, model.TimeframeDaily, model.SectionOverflow, today)

	require.True(t, env.planner.CanMoveToSection(a.ID, model.SectionOverflow))
	require.NoError(t, env.planner.MoveToSection(ctx, a.ID, model.SectionOverflow))

	primary := env.planner.CommitmentsFor(model.SectionPrimary, model.TimeframeDaily, today)
	require.Len(t, primary, 1)
	assert.Equal(t, b.ID, primary[0].Commitment.ID)
	assert.Equal(t, 0, primary[0].Commitment.SortOrder, "source bucket resequenced")

	overflow := env.planner.CommitmentsFor(model.SectionOverflow, model.TimeframeDaily, today)
	require.Len(t, overflow, 2)
	assert.Equal(t, []uint{o.ID, a.ID}, viewIDs(overflow), "moved commitment appends to the destination")

	require.NoError(t, env.planner.Refresh(ctx))
	moved, ok := env.planner.Commitment(a.ID)
	require.True(t, ok)
	assert.Equal(t, model.SectionOverflow, moved.Section)
}

func TestMoveToFullSectionIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	today := day(2026, time.March, 18)

	for i := 0; i < 3; i++ {
		env.mustCommit(t, env.mustCreateTask(t, "p").ID, model.TimeframeDaily, model.SectionPrimary, today)
	}
	moved := env.mustCommit(t, env.mustCreateTask(t, "extra").ID, model.TimeframeDaily, model.SectionOverflow, today)

	assert.False(t, env.planner.CanMoveToSection(moved.ID, model.SectionPrimary))
	require.NoError(t, env.planner.MoveToSection(ctx, moved.ID, model.SectionPrimary), "full destination is a silent no-op")

	got, _ := env.planner.Commitment(moved.ID)
	assert.Equal(t, model.SectionOverflow, got.Section)
}

func viewIDs(views []CommitmentView) []uint {
	ids := make([]uint, len(views))
	for i, v := range views {
		ids[i] = v.Commitment.ID
	}
	return ids
}
