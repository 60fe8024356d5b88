package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
)

func TestPeriodSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agenda := NewAgendaService(env.planner)
	today := day(2026, time.March, 18)

	focus := env.mustCreateTask(t, "write <report>")
	env.mustCommit(t, focus.ID, model.TimeframeDaily, model.SectionPrimary, today)
	later := env.mustCreateTask(t, "read inbox")
	env.mustCommit(t, later.ID, model.TimeframeDaily, model.SectionOverflow, today)
	require.NoError(t, env.planner.ToggleCompletion(ctx, later.ID))

	out := agenda.PeriodSummary(model.TimeframeDaily, today)

	assert.Contains(t, out, "Wed, 18 Mar 2026")
	assert.Contains(t, out, "Focus")
	assert.Contains(t, out, "Overflow")
	assert.Contains(t, out, "write &lt;report&gt;", "titles are HTML-escaped")
	assert.Contains(t, out, "✅ read inbox")
	assert.Contains(t, out, "(2 free)", "capped sections show free slots")
}

func TestPeriodSummaryEmpty(t *testing.T) {
	env := newTestEnv(t)
	agenda := NewAgendaService(env.planner)

	out := agenda.PeriodSummary(model.TimeframeWeekly, day(2026, time.March, 18))
	assert.Contains(t, out, "Nothing planned yet.")
}

func TestPeriodSummaryShowsBreakdownCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agenda := NewAgendaService(env.planner)

	task := env.mustCreateTask(t, "Learn Spanish")
	yearly := env.mustCommit(t, task.ID, model.TimeframeYearly, model.SectionPrimary, day(2026, time.January, 1))
	_, err := env.planner.BreakDown(ctx, yearly.ID, model.TimeframeMonthly, day(2026, time.March, 1))
	require.NoError(t, err)

	out := agenda.PeriodSummary(model.TimeframeYearly, day(2026, time.June, 1))
	assert.Contains(t, out, "1 broken down")
}

func TestFormatPeriod(t *testing.T) {
	at := day(2026, time.March, 18)

	assert.Equal(t, "Wed, 18 Mar 2026", FormatPeriod(model.TimeframeDaily, at))
	assert.Equal(t, "Week of 15 Mar – 21 Mar 2026", FormatPeriod(model.TimeframeWeekly, at))
	assert.Equal(t, "March 2026", FormatPeriod(model.TimeframeMonthly, at))
	assert.Equal(t, "2026", FormatPeriod(model.TimeframeYearly, at))
}
