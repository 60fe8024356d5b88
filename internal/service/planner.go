package service

import (
	"context"
	"time"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/config"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/event"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/repository"
)

// CurrentUser resolves the owner of every planner operation. Passed in
// explicitly so no component reaches for ambient user state.
type CurrentUser interface {
	CurrentUserID(ctx context.Context) (uint, error)
}

// CurrentUserFunc adapts a function to the CurrentUser interface.
type CurrentUserFunc func(ctx context.Context) (uint, error)

func (f CurrentUserFunc) CurrentUserID(ctx context.Context) (uint, error) {
	return f(ctx)
}

// CommitmentView is one row of a section bucket as the UI shows it.
type CommitmentView struct {
	Commitment model.Commitment
	Task       model.Task
	// ChildCount is the number of direct breakdown children, for the
	// "N broken down" badge.
	ChildCount int
}

// Planner is the scheduling façade: the sole entry point the UI layer
// talks to. It composes the task graph, the commitment ledger and the
// breakdown, reorder and reschedule engines, and stamps every mutation
// with the current user.
type Planner struct {
	graph      *TaskGraph
	ledger     *Ledger
	breakdown  *BreakdownEngine
	reorder    *ReorderEngine
	reschedule *RescheduleEngine
	current    CurrentUser
	bus        *event.Bus
}

func NewPlanner(
	taskRepo *repository.TaskRepository,
	commitmentRepo *repository.CommitmentRepository,
	limits config.SectionLimits,
	current CurrentUser,
	bus *event.Bus,
) *Planner {
	ledger := NewLedger(commitmentRepo, limits)
	graph := NewTaskGraph(taskRepo, ledger, bus)
	return &Planner{
		graph:      graph,
		ledger:     ledger,
		breakdown:  NewBreakdownEngine(ledger),
		reorder:    NewReorderEngine(ledger, graph, commitmentRepo),
		reschedule: NewRescheduleEngine(ledger),
		current:    current,
		bus:        bus,
	}
}

// Refresh reloads both mirrors from the stores. This is the
// reconciliation path after store failures or external changes.
func (p *Planner) Refresh(ctx context.Context) error {
	userID, err := p.current.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	if err := p.graph.Refresh(ctx, userID); err != nil {
		return err
	}
	return p.ledger.Refresh(ctx, userID)
}

// Subscribe registers a completion-change handler; the returned
// function unsubscribes it.
func (p *Planner) Subscribe(h event.Handler) func() {
	return p.bus.Subscribe(h)
}

// CommitmentsFor returns the bucket for (section, timeframe, period of
// date): incomplete commitments first, in sort order, completed ones
// after in no particular order.
func (p *Planner) CommitmentsFor(section model.Section, tf model.Timeframe, date time.Time) []CommitmentView {
	var incomplete, completed []CommitmentView
	for _, c := range p.ledger.For(section, tf, date) {
		view := CommitmentView{
			Commitment: c,
			ChildCount: len(p.ledger.ChildrenOf(c.ID)),
		}
		view.Task, _ = p.graph.Get(c.TaskID)
		if view.Task.IsCompleted {
			completed = append(completed, view)
		} else {
			incomplete = append(incomplete, view)
		}
	}
	return append(incomplete, completed...)
}

// CapacityRemaining reports free slots in a bucket; the second return
// is false for unlimited buckets.
func (p *Planner) CapacityRemaining(section model.Section, tf model.Timeframe, date time.Time) (int, bool) {
	return p.ledger.CapacityRemaining(section, tf, date)
}

// CanMoveToSection pre-checks a cross-section move for the UI.
func (p *Planner) CanMoveToSection(commitmentID uint, dest model.Section) bool {
	c, ok := p.ledger.Get(commitmentID)
	if !ok {
		return false
	}
	return p.ledger.CanAdd(dest, c.Timeframe, c.PeriodStart, &c.ID)
}

// Task returns the mirrored task with the given id.
func (p *Planner) Task(id uint) (model.Task, bool) {
	return p.graph.Get(id)
}

// Subtasks returns a task's direct subtasks in sibling order.
func (p *Planner) Subtasks(parentID uint) []model.Task {
	return p.graph.Subtasks(parentID)
}

// Commitment returns the mirrored commitment with the given id.
func (p *Planner) Commitment(id uint) (model.Commitment, bool) {
	return p.ledger.Get(id)
}

// CommitmentsForTask returns every commitment binding a task.
func (p *Planner) CommitmentsForTask(taskID uint) []model.Commitment {
	return p.ledger.ByTask(taskID)
}

// CreateTask adds a new top-level task for the current user.
func (p *Planner) CreateTask(ctx context.Context, title string, typ model.TaskType) (*model.Task, error) {
	userID, err := p.current.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return p.graph.CreateTask(ctx, userID, title, typ)
}

// CreateSubtask adds a subtask under parentID.
func (p *Planner) CreateSubtask(ctx context.Context, parentID uint, title string) (*model.Task, error) {
	userID, err := p.current.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return p.graph.CreateSubtask(ctx, userID, parentID, title)
}

// ToggleCompletion flips a task with full cascade semantics.
func (p *Planner) ToggleCompletion(ctx context.Context, taskID uint) error {
	return p.graph.ToggleCompletion(ctx, taskID)
}

// ToggleSubtaskCompletion flips a subtask and re-evaluates the parent's
// auto-completion against the viewed timeframe.
func (p *Planner) ToggleSubtaskCompletion(ctx context.Context, subtaskID, parentID uint, viewed model.Timeframe) error {
	return p.graph.ToggleSubtaskCompletion(ctx, subtaskID, parentID, viewed)
}

// CommitTask binds a task into a section at the period containing date.
func (p *Planner) CommitTask(ctx context.Context, taskID uint, tf model.Timeframe, section model.Section, date time.Time) (*model.Commitment, error) {
	userID, err := p.current.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := p.graph.Get(taskID); !ok {
		return nil, &ValidationError{Field: "taskId", Reason: "task not found"}
	}
	return p.ledger.Create(ctx, CommitmentParams{
		UserID:    userID,
		TaskID:    taskID,
		Timeframe: tf,
		Section:   section,
		Date:      date,
	})
}

// PlanNewTask creates a task and immediately commits it, the common
// "add to today" flow.
func (p *Planner) PlanNewTask(ctx context.Context, title string, tf model.Timeframe, section model.Section, date time.Time) (*model.Commitment, error) {
	if remaining, limited := p.ledger.CapacityRemaining(section, tf, date); limited && remaining == 0 {
		// Checked before the task is created so a full section does not
		// leave an orphan task behind.
		return nil, &CapacityExceededError{Section: section, Timeframe: tf, Limit: p.ledger.limits.Limit(section, tf)}
	}
	task, err := p.CreateTask(ctx, title, model.TaskTypePlain)
	if err != nil {
		return nil, err
	}
	return p.CommitTask(ctx, task.ID, tf, section, date)
}

// RemoveCommitment deletes a commitment and its breakdown subtree.
func (p *Planner) RemoveCommitment(ctx context.Context, commitmentID uint) error {
	userID, err := p.current.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	return p.ledger.DeleteWithDescendants(ctx, userID, commitmentID)
}

// AvailableBreakdownTimeframes lists valid breakdown targets for a
// commitment's timeframe.
func (p *Planner) AvailableBreakdownTimeframes(tf model.Timeframe) []model.Timeframe {
	return AvailableBreakdownTimeframes(tf)
}

// AvailableSlots lists the unused sub-periods a breakdown child could
// take.
func (p *Planner) AvailableSlots(parentID uint, target model.Timeframe) ([]time.Time, error) {
	return p.breakdown.AvailableSlots(parentID, target)
}

// BreakDown creates a child commitment at the target timeframe/slot.
func (p *Planner) BreakDown(ctx context.Context, parentID uint, target model.Timeframe, date time.Time) (*model.Commitment, error) {
	return p.breakdown.CreateChild(ctx, parentID, target, date)
}

// BreakdownSubtree returns the commitment's full breakdown subtree.
func (p *Planner) BreakdownSubtree(parentID uint) []model.Commitment {
	return p.breakdown.Descendants(parentID)
}

// MoveWithinSection drags a commitment to targetIndex in its bucket.
func (p *Planner) MoveWithinSection(ctx context.Context, commitmentID uint, targetIndex int) error {
	return p.reorder.MoveWithinSection(ctx, commitmentID, targetIndex)
}

// MoveToSection moves a commitment into another section; a no-op when
// the destination is full (pre-check with CanMoveToSection).
func (p *Planner) MoveToSection(ctx context.Context, commitmentID uint, dest model.Section) error {
	return p.reorder.MoveToSection(ctx, commitmentID, dest)
}

// Reschedule relocates a commitment to a new period and timeframe.
func (p *Planner) Reschedule(ctx context.Context, commitmentID uint, newDate time.Time, newTf model.Timeframe) error {
	return p.reschedule.Reschedule(ctx, commitmentID, newDate, newTf)
}

// PushToNext moves a commitment one period forward at its own
// timeframe.
func (p *Planner) PushToNext(ctx context.Context, commitmentID uint) error {
	return p.reschedule.PushToNext(ctx, commitmentID)
}
