package service

import (
	"context"
	"fmt"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/repository"
)

// ReorderEngine computes new sort orders for drag reorders within a
// section and for moves between sections, under capacity constraints.
// Completed commitments keep their stored order; only the incomplete
// ordering of a bucket is resequenced.
type ReorderEngine struct {
	ledger *Ledger
	graph  *TaskGraph
	repo   *repository.CommitmentRepository
}

func NewReorderEngine(ledger *Ledger, graph *TaskGraph, repo *repository.CommitmentRepository) *ReorderEngine {
	return &ReorderEngine{ledger: ledger, graph: graph, repo: repo}
}

func (e *ReorderEngine) incompleteBucket(section model.Section, tf model.Timeframe, c model.Commitment) []model.Commitment {
	var bucket []model.Commitment
	for _, entry := range e.ledger.For(section, tf, c.PeriodStart) {
		if !e.graph.IsCompleted(entry.TaskID) {
			bucket = append(bucket, entry)
		}
	}
	return bucket
}

// MoveWithinSection drags a commitment to targetIndex in the incomplete
// ordering of its bucket and resequences the whole bucket, persisting
// all changed pairs in one batch.
func (e *ReorderEngine) MoveWithinSection(ctx context.Context, commitmentID uint, targetIndex int) error {
	c, ok := e.ledger.Get(commitmentID)
	if !ok {
		return fmt.Errorf("commitment %d not in ledger", commitmentID)
	}

	bucket := e.incompleteBucket(c.Section, c.Timeframe, c)
	current := -1
	for i, entry := range bucket {
		if entry.ID == commitmentID {
			current = i
			break
		}
	}
	if current < 0 {
		return fmt.Errorf("commitment %d not in its incomplete bucket", commitmentID)
	}

	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex > len(bucket)-1 {
		targetIndex = len(bucket) - 1
	}

	without := make([]model.Commitment, 0, len(bucket)-1)
	without = append(without, bucket[:current]...)
	without = append(without, bucket[current+1:]...)

	reordered := make([]model.Commitment, 0, len(bucket))
	reordered = append(reordered, without[:targetIndex]...)
	reordered = append(reordered, c)
	reordered = append(reordered, without[targetIndex:]...)

	updates := sequence(reordered)
	if err := e.repo.BatchUpdateSortOrders(ctx, updates); err != nil {
		return err
	}
	e.ledger.applyOrders(updates)
	return nil
}

// MoveToSection reassigns a commitment's section and resequences both
// the source and destination incomplete orderings, persisting the
// triples in one batch. A full destination makes this a no-op; callers
// pre-check with CanAdd and surface the failure themselves.
func (e *ReorderEngine) MoveToSection(ctx context.Context, commitmentID uint, dest model.Section) error {
	c, ok := e.ledger.Get(commitmentID)
	if !ok {
		return fmt.Errorf("commitment %d not in ledger", commitmentID)
	}
	if !dest.Valid() {
		return &ValidationError{Field: "section", Reason: "unknown section"}
	}
	if dest == c.Section {
		return nil
	}
	if !e.ledger.CanAdd(dest, c.Timeframe, c.PeriodStart, &c.ID) {
		return nil
	}

	var moves []repository.SectionMove
	source := e.incompleteBucket(c.Section, c.Timeframe, c)
	order := 0
	for _, entry := range source {
		if entry.ID == commitmentID {
			continue
		}
		moves = append(moves, repository.SectionMove{ID: entry.ID, SortOrder: order, Section: entry.Section})
		order++
	}

	destBucket := e.incompleteBucket(dest, c.Timeframe, c)
	for i, entry := range destBucket {
		moves = append(moves, repository.SectionMove{ID: entry.ID, SortOrder: i, Section: entry.Section})
	}
	moves = append(moves, repository.SectionMove{ID: c.ID, SortOrder: len(destBucket), Section: dest})

	if err := e.repo.BatchUpdateSortOrdersAndSections(ctx, moves); err != nil {
		return err
	}
	e.ledger.applyMoves(moves)
	return nil
}

func sequence(bucket []model.Commitment) []repository.SortUpdate {
	updates := make([]repository.SortUpdate, len(bucket))
	for i, entry := range bucket {
		updates[i] = repository.SortUpdate{ID: entry.ID, SortOrder: i}
	}
	return updates
}
