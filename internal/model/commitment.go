package model

import "time"

// Commitment binds a task to a specific period, section and sort
// position. PeriodStart is always normalized to the start of the bound
// period for the commitment's timeframe.
//
// ParentCommitmentID, when set, references a commitment at a strictly
// higher timeframe that this one was broken down from. Uniqueness of
// (task, timeframe, period) is not enforced at the store level;
// duplicate-slot prevention belongs to the breakdown engine.
type Commitment struct {
	ID                 uint      `gorm:"primaryKey"`
	UserID             uint      `gorm:"index"`
	TaskID             uint      `gorm:"index"`
	Timeframe          Timeframe `gorm:"index:idx_commitment_bucket"`
	Section            Section   `gorm:"index:idx_commitment_bucket"`
	PeriodStart        time.Time `gorm:"index:idx_commitment_bucket"`
	SortOrder          int
	ParentCommitmentID *uint `gorm:"index"`
	// Optional calendar-timeline placement, orthogonal to the timeframe.
	ScheduledAt     *time.Time
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
