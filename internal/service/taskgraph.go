package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/event"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/repository"
)

var validate = validator.New()

type taskInput struct {
	Title string `validate:"required,max=255"`
}

// TaskGraph is the in-memory mirror of the user's tasks and their
// parent/subtask relationships. It owns the completion-cascade rules
// and publishes completion-changed events. Mutations persist through
// the task store; failures propagate without rolling the mirror back.
type TaskGraph struct {
	repo   *repository.TaskRepository
	ledger *Ledger
	bus    *event.Bus

	mu    sync.RWMutex
	tasks map[uint]*model.Task
}

func NewTaskGraph(repo *repository.TaskRepository, ledger *Ledger, bus *event.Bus) *TaskGraph {
	return &TaskGraph{
		repo:   repo,
		ledger: ledger,
		bus:    bus,
		tasks:  make(map[uint]*model.Task),
	}
}

// Refresh reloads the mirror from the store.
func (g *TaskGraph) Refresh(ctx context.Context, userID uint) error {
	all, err := g.repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.tasks = make(map[uint]*model.Task, len(all))
	for i := range all {
		t := all[i]
		g.tasks[t.ID] = &t
	}
	return nil
}

// Get returns a copy of the task with the given id.
func (g *TaskGraph) Get(id uint) (model.Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return *t, true
}

// IsCompleted reports the mirrored completion state of a task.
func (g *TaskGraph) IsCompleted(id uint) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tasks[id]
	return ok && t.IsCompleted
}

// Subtasks returns the direct subtasks of a task in sibling order.
func (g *TaskGraph) Subtasks(parentID uint) []model.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	subs := g.subtasksLocked(parentID)
	out := make([]model.Task, len(subs))
	for i, s := range subs {
		out[i] = *s
	}
	return out
}

func (g *TaskGraph) subtasksLocked(parentID uint) []*model.Task {
	var subs []*model.Task
	for _, t := range g.tasks {
		if t.IsSubtask() && *t.ParentTaskID == parentID {
			subs = append(subs, t)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].SortOrder != subs[j].SortOrder {
			return subs[i].SortOrder < subs[j].SortOrder
		}
		return subs[i].ID < subs[j].ID
	})
	return subs
}

// CreateTask adds a new top-level task.
func (g *TaskGraph) CreateTask(ctx context.Context, userID uint, title string, typ model.TaskType) (*model.Task, error) {
	return g.create(ctx, userID, title, typ, nil)
}

// CreateSubtask adds a subtask under parentID.
func (g *TaskGraph) CreateSubtask(ctx context.Context, userID, parentID uint, title string) (*model.Task, error) {
	if _, ok := g.Get(parentID); !ok {
		return nil, &ValidationError{Field: "parentId", Reason: "parent task not found"}
	}
	return g.create(ctx, userID, title, model.TaskTypePlain, &parentID)
}

func (g *TaskGraph) create(ctx context.Context, userID uint, title string, typ model.TaskType, parentID *uint) (*model.Task, error) {
	title = strings.TrimSpace(title)
	if err := validate.Struct(taskInput{Title: title}); err != nil {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}

	task := &model.Task{
		UserID:       userID,
		Title:        title,
		Type:         typ,
		ParentTaskID: parentID,
		SortOrder:    g.nextSortOrder(parentID),
	}
	if err := g.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.tasks[task.ID] = task
	g.mu.Unlock()
	return task, nil
}

func (g *TaskGraph) nextSortOrder(parentID *uint) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	next := 0
	for _, t := range g.tasks {
		sameScope := (t.ParentTaskID == nil) == (parentID == nil) &&
			(parentID == nil || (t.ParentTaskID != nil && *t.ParentTaskID == *parentID))
		if sameScope && t.SortOrder >= next {
			next = t.SortOrder + 1
		}
	}
	return next
}

// ToggleCompletion flips a task's completion state. Completing a parent
// snapshots its subtasks' states and completes them all; uncompleting a
// parent that has a snapshot restores each subtask positionally.
// Events publish after the lock is released, so subscribers may read
// back through the graph.
func (g *TaskGraph) ToggleCompletion(ctx context.Context, taskID uint) error {
	g.mu.Lock()
	changes, err := g.toggleLocked(ctx, taskID)
	g.mu.Unlock()

	g.publish(changes)
	return err
}

func (g *TaskGraph) toggleLocked(ctx context.Context, taskID uint) ([]event.CompletionChange, error) {
	task, ok := g.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %d not in mirror", taskID)
	}

	if task.IsCompleted {
		return g.uncompleteLocked(ctx, task)
	}
	return g.completeLocked(ctx, task)
}

func (g *TaskGraph) publish(changes []event.CompletionChange) {
	for _, c := range changes {
		g.bus.Publish(c)
	}
}

func (g *TaskGraph) completeLocked(ctx context.Context, task *model.Task) ([]event.CompletionChange, error) {
	now := time.Now()
	subs := g.subtasksLocked(task.ID)

	var snapshot model.SnapshotStates
	subtasksChanged := false
	if len(subs) > 0 {
		snapshot = make(model.SnapshotStates, len(subs))
		for i, s := range subs {
			snapshot[i] = s.IsCompleted
		}
		// Cascade depth-first: subtasks persist before the parent, and
		// the cascade stops at the first store failure.
		for _, s := range subs {
			if s.IsCompleted {
				continue
			}
			s.IsCompleted = true
			s.CompletedAt = &now
			if err := g.repo.Save(ctx, s); err != nil {
				return nil, err
			}
			subtasksChanged = true
		}
	}

	task.CompletionSnapshot = snapshot
	task.IsCompleted = true
	task.CompletedAt = &now
	if err := g.repo.Save(ctx, task); err != nil {
		return nil, err
	}

	return []event.CompletionChange{event.NewCompletionChange(task.ID, true, &now, subtasksChanged, "toggle")}, nil
}

func (g *TaskGraph) uncompleteLocked(ctx context.Context, task *model.Task) ([]event.CompletionChange, error) {
	now := time.Now()
	subs := g.subtasksLocked(task.ID)

	subtasksChanged := false
	if len(task.CompletionSnapshot) > 0 {
		for i, s := range subs {
			if i >= len(task.CompletionSnapshot) {
				// Subtasks added since the snapshot keep their state.
				break
			}
			want := task.CompletionSnapshot[i]
			if s.IsCompleted == want {
				continue
			}
			s.IsCompleted = want
			if want {
				s.CompletedAt = &now
			} else {
				s.CompletedAt = nil
			}
			if err := g.repo.Save(ctx, s); err != nil {
				return nil, err
			}
			subtasksChanged = true
		}
	}

	task.IsCompleted = false
	task.CompletedAt = nil
	task.CompletionSnapshot = nil
	if err := g.repo.Save(ctx, task); err != nil {
		return nil, err
	}

	return []event.CompletionChange{event.NewCompletionChange(task.ID, false, nil, subtasksChanged, "toggle")}, nil
}

// ToggleSubtaskCompletion flips a single subtask, then re-evaluates the
// parent's auto-completion. A subtask counts toward the parent only if
// it has no commitment of its own, or a commitment at the timeframe the
// parent is currently viewed at; subtasks broken down to a lower
// timeframe are excluded from the count.
func (g *TaskGraph) ToggleSubtaskCompletion(ctx context.Context, subtaskID, parentID uint, viewed model.Timeframe) error {
	g.mu.Lock()
	changes, err := g.toggleSubtaskLocked(ctx, subtaskID, parentID, viewed)
	g.mu.Unlock()

	g.publish(changes)
	return err
}

func (g *TaskGraph) toggleSubtaskLocked(ctx context.Context, subtaskID, parentID uint, viewed model.Timeframe) ([]event.CompletionChange, error) {
	sub, ok := g.tasks[subtaskID]
	if !ok {
		return nil, fmt.Errorf("subtask %d not in mirror", subtaskID)
	}
	parent, ok := g.tasks[parentID]
	if !ok {
		return nil, fmt.Errorf("task %d not in mirror", parentID)
	}
	if !sub.IsSubtask() || *sub.ParentTaskID != parentID {
		return nil, &ValidationError{Field: "subtaskId", Reason: "not a subtask of the given parent"}
	}

	now := time.Now()
	sub.IsCompleted = !sub.IsCompleted
	if sub.IsCompleted {
		sub.CompletedAt = &now
	} else {
		sub.CompletedAt = nil
	}
	if err := g.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	changes := []event.CompletionChange{event.NewCompletionChange(sub.ID, sub.IsCompleted, sub.CompletedAt, false, "toggle")}

	parentChange, err := g.evaluateAutoCompleteLocked(ctx, parent, viewed, now)
	if parentChange != nil {
		changes = append(changes, *parentChange)
	}
	return changes, err
}

func (g *TaskGraph) evaluateAutoCompleteLocked(ctx context.Context, parent *model.Task, viewed model.Timeframe, now time.Time) (*event.CompletionChange, error) {
	subs := g.subtasksLocked(parent.ID)
	counted, done := 0, 0
	for _, s := range subs {
		if !g.countsTowardParent(s.ID, viewed) {
			continue
		}
		counted++
		if s.IsCompleted {
			done++
		}
	}

	switch {
	case counted > 0 && done == counted && !parent.IsCompleted:
		// Snapshot before forcing, so a later uncomplete can restore.
		snapshot := make(model.SnapshotStates, len(subs))
		for i, s := range subs {
			snapshot[i] = s.IsCompleted
		}
		parent.CompletionSnapshot = snapshot
		parent.IsCompleted = true
		parent.CompletedAt = &now
		if err := g.repo.Save(ctx, parent); err != nil {
			return nil, err
		}
		change := event.NewCompletionChange(parent.ID, true, &now, false, "auto")
		return &change, nil
	case counted > 0 && done < counted && parent.IsCompleted:
		// Auto-uncomplete leaves subtask states alone; only the direct
		// uncomplete path restores from the snapshot.
		parent.IsCompleted = false
		parent.CompletedAt = nil
		if err := g.repo.Save(ctx, parent); err != nil {
			return nil, err
		}
		change := event.NewCompletionChange(parent.ID, false, nil, false, "auto")
		return &change, nil
	}
	return nil, nil
}

func (g *TaskGraph) countsTowardParent(subtaskID uint, viewed model.Timeframe) bool {
	if !g.ledger.HasCommitment(subtaskID) {
		return true
	}
	for _, tf := range g.ledger.TimeframesFor(subtaskID) {
		if tf == viewed {
			return true
		}
	}
	return false
}
