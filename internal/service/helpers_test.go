package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/config"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/event"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/repository"
)

type testEnv struct {
	db         *gorm.DB
	bus        *event.Bus
	taskRepo   *repository.TaskRepository
	commitRepo *repository.CommitmentRepository
	planner    *Planner
	userID     uint
}

func testLimits() config.SectionLimits {
	return config.SectionLimits{
		model.SectionPrimary: {
			model.TimeframeDaily:   3,
			model.TimeframeWeekly:  5,
			model.TimeframeMonthly: 5,
			model.TimeframeYearly:  3,
		},
		model.SectionOverflow: {},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repository.NewDB(dsn)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	user, err := userRepo.UpsertFromTelegram(context.Background(), 42, "Test", "Owner", "owner")
	require.NoError(t, err)

	env := &testEnv{
		db:         db,
		bus:        event.NewBus(),
		taskRepo:   repository.NewTaskRepository(db),
		commitRepo: repository.NewCommitmentRepository(db),
		userID:     user.ID,
	}
	current := CurrentUserFunc(func(context.Context) (uint, error) { return env.userID, nil })
	env.planner = NewPlanner(env.taskRepo, env.commitRepo, testLimits(), current, env.bus)
	require.NoError(t, env.planner.Refresh(context.Background()))
	return env
}

func (env *testEnv) mustCreateTask(t *testing.T, title string) *model.Task {
	t.Helper()
	task, err := env.planner.CreateTask(context.Background(), title, model.TaskTypePlain)
	require.NoError(t, err)
	return task
}

func (env *testEnv) mustCommit(t *testing.T, taskID uint, tf model.Timeframe, section model.Section, date time.Time) *model.Commitment {
	t.Helper()
	c, err := env.planner.CommitTask(context.Background(), taskID, tf, section, date)
	require.NoError(t, err)
	return c
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
