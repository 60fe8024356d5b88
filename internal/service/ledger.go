package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/config"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/period"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/repository"
)

// CommitmentParams describes a commitment to create.
type CommitmentParams struct {
	UserID             uint
	TaskID             uint
	Timeframe          model.Timeframe
	Section            model.Section
	Date               time.Time
	ParentCommitmentID *uint
}

// Ledger is the in-memory mirror of the user's commitments. It owns
// capacity rules, sort-order assignment and breakdown parent/child
// linkage. Mutations persist through the commitment store and update
// the mirror with the round-trip result; store failures propagate
// without rolling the mirror back, and the next Refresh reconciles.
//
// Capacity checks read the mirror at call time and are not atomic with
// the persist. Two concurrent adds can both pass the check; acceptable
// for a single-writer client.
type Ledger struct {
	repo   *repository.CommitmentRepository
	limits config.SectionLimits

	mu          sync.RWMutex
	commitments map[uint]*model.Commitment
}

func NewLedger(repo *repository.CommitmentRepository, limits config.SectionLimits) *Ledger {
	return &Ledger{
		repo:        repo,
		limits:      limits,
		commitments: make(map[uint]*model.Commitment),
	}
}

// Refresh reloads the mirror from the store.
func (l *Ledger) Refresh(ctx context.Context, userID uint) error {
	all, err := l.repo.List(ctx, userID, repository.CommitmentFilter{})
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.commitments = make(map[uint]*model.Commitment, len(all))
	for i := range all {
		c := all[i]
		l.commitments[c.ID] = &c
	}
	return nil
}

// Get returns a copy of the commitment with the given id.
func (l *Ledger) Get(id uint) (model.Commitment, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.commitments[id]
	if !ok {
		return model.Commitment{}, false
	}
	return *c, true
}

// For returns the bucket of commitments bound to (section, timeframe,
// period of date), sorted by sort order.
func (l *Ledger) For(section model.Section, tf model.Timeframe, date time.Time) []model.Commitment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bucketLocked(section, tf, date)
}

func (l *Ledger) bucketLocked(section model.Section, tf model.Timeframe, date time.Time) []model.Commitment {
	var bucket []model.Commitment
	for _, c := range l.commitments {
		if c.Section == section && c.Timeframe == tf && period.Same(tf, c.PeriodStart, date) {
			bucket = append(bucket, *c)
		}
	}
	sort.Slice(bucket, func(i, j int) bool {
		if bucket[i].SortOrder != bucket[j].SortOrder {
			return bucket[i].SortOrder < bucket[j].SortOrder
		}
		return bucket[i].ID < bucket[j].ID
	})
	return bucket
}

// CapacityRemaining returns how many commitments the bucket can still
// take. The second return is false when the bucket is unlimited.
func (l *Ledger) CapacityRemaining(section model.Section, tf model.Timeframe, date time.Time) (int, bool) {
	limit := l.limits.Limit(section, tf)
	if limit <= 0 {
		return 0, false
	}
	remaining := limit - len(l.For(section, tf, date))
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// CanAdd reports whether one more commitment fits the bucket, not
// counting excludeID (used when moving an existing commitment).
func (l *Ledger) CanAdd(section model.Section, tf model.Timeframe, date time.Time, excludeID *uint) bool {
	limit := l.limits.Limit(section, tf)
	if limit <= 0 {
		return true
	}
	count := 0
	for _, c := range l.For(section, tf, date) {
		if excludeID != nil && c.ID == *excludeID {
			continue
		}
		count++
	}
	return count < limit
}

// Create binds a task into a section bucket, enforcing capacity and
// parent-timeframe ordering, and appends it to the bucket's sort order.
func (l *Ledger) Create(ctx context.Context, p CommitmentParams) (*model.Commitment, error) {
	if !p.Timeframe.Valid() {
		return nil, &ValidationError{Field: "timeframe", Reason: "unknown timeframe"}
	}
	if !p.Section.Valid() {
		return nil, &ValidationError{Field: "section", Reason: "unknown section"}
	}
	if p.ParentCommitmentID != nil {
		parent, ok := l.Get(*p.ParentCommitmentID)
		if !ok {
			return nil, &ValidationError{Field: "parentCommitmentId", Reason: "parent commitment not found"}
		}
		if parent.Timeframe.Rank() <= p.Timeframe.Rank() {
			return nil, &ValidationError{Field: "parentCommitmentId", Reason: "parent timeframe must be higher"}
		}
	}
	if !l.CanAdd(p.Section, p.Timeframe, p.Date, nil) {
		return nil, &CapacityExceededError{
			Section:   p.Section,
			Timeframe: p.Timeframe,
			Limit:     l.limits.Limit(p.Section, p.Timeframe),
		}
	}

	c := &model.Commitment{
		UserID:             p.UserID,
		TaskID:             p.TaskID,
		Timeframe:          p.Timeframe,
		Section:            p.Section,
		PeriodStart:        period.Start(p.Timeframe, p.Date),
		SortOrder:          l.nextSortOrder(p.Section, p.Timeframe, p.Date),
		ParentCommitmentID: p.ParentCommitmentID,
	}
	if err := l.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.commitments[c.ID] = c
	l.mu.Unlock()
	return c, nil
}

func (l *Ledger) nextSortOrder(section model.Section, tf model.Timeframe, date time.Time) int {
	next := 0
	for _, c := range l.For(section, tf, date) {
		if c.SortOrder >= next {
			next = c.SortOrder + 1
		}
	}
	return next
}

// Update persists a modified commitment and applies it to the mirror.
func (l *Ledger) Update(ctx context.Context, c model.Commitment) error {
	if err := l.repo.Save(ctx, &c); err != nil {
		return err
	}
	l.mu.Lock()
	l.commitments[c.ID] = &c
	l.mu.Unlock()
	return nil
}

// Delete removes a single commitment.
func (l *Ledger) Delete(ctx context.Context, userID, id uint) error {
	if err := l.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	l.mu.Lock()
	delete(l.commitments, id)
	l.mu.Unlock()
	return nil
}

// DeleteWithDescendants removes a commitment and its whole breakdown
// subtree. Entries go bottom-up so no dangling child can survive its
// parent; the cascade stops at the first store failure, leaving partial
// state for the next refresh to surface.
func (l *Ledger) DeleteWithDescendants(ctx context.Context, userID, id uint) error {
	// Preorder with the root first; reverse iteration then removes every
	// node before its ancestors.
	subtree := append([]model.Commitment{{ID: id}}, l.DescendantsOf(id)...)
	for i := len(subtree) - 1; i >= 0; i-- {
		if err := l.Delete(ctx, userID, subtree[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// ChildrenOf returns the direct breakdown children of a commitment.
func (l *Ledger) ChildrenOf(id uint) []model.Commitment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.childrenLocked(id)
}

func (l *Ledger) childrenLocked(id uint) []model.Commitment {
	var children []model.Commitment
	for _, c := range l.commitments {
		if c.ParentCommitmentID != nil && *c.ParentCommitmentID == id {
			children = append(children, *c)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].PeriodStart.Before(children[j].PeriodStart)
	})
	return children
}

// DescendantsOf walks children, then grandchildren, building the full
// breakdown subtree top-down. The root itself is not included.
func (l *Ledger) DescendantsOf(id uint) []model.Commitment {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var subtree []model.Commitment
	var walk func(parentID uint)
	walk = func(parentID uint) {
		for _, child := range l.childrenLocked(parentID) {
			subtree = append(subtree, child)
			walk(child.ID)
		}
	}
	walk(id)
	return subtree
}

// HasCommitment reports whether any commitment binds the given task.
func (l *Ledger) HasCommitment(taskID uint) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.commitments {
		if c.TaskID == taskID {
			return true
		}
	}
	return false
}

// TimeframesFor returns the timeframes at which the task is committed.
func (l *Ledger) TimeframesFor(taskID uint) []model.Timeframe {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[model.Timeframe]bool)
	var tfs []model.Timeframe
	for _, c := range l.commitments {
		if c.TaskID == taskID && !seen[c.Timeframe] {
			seen[c.Timeframe] = true
			tfs = append(tfs, c.Timeframe)
		}
	}
	return tfs
}

// ByTask returns every commitment binding the given task.
func (l *Ledger) ByTask(taskID uint) []model.Commitment {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.Commitment
	for _, c := range l.commitments {
		if c.TaskID == taskID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// applyOrders folds a persisted reorder result into the mirror.
func (l *Ledger) applyOrders(updates []repository.SortUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range updates {
		if c, ok := l.commitments[u.ID]; ok {
			c.SortOrder = u.SortOrder
		}
	}
}

// applyMoves folds a persisted cross-section move into the mirror.
func (l *Ledger) applyMoves(moves []repository.SectionMove) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range moves {
		if c, ok := l.commitments[m.ID]; ok {
			c.SortOrder = m.SortOrder
			c.Section = m.Section
		}
	}
}
