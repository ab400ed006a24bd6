package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses
const (
	EnrollmentStatusActive     = "active"
	EnrollmentStatusPaused     = "paused"
	EnrollmentStatusUnenrolled = "unenrolled"
	EnrollmentStatusCompleted  = "completed"
)

// Step log statuses
const (
	StepLogStatusPending   = "pending"
	StepLogStatusCompleted = "completed"
)

// SequenceEnrollment tracks one contact's run through a sequence.
// CurrentStep is a 0-based index into the sequence's steps; it may
// equal len(steps) only when the enrollment is completed.
type SequenceEnrollment struct {
	gorm.Model
	SequenceID    uint   `gorm:"not null;index" json:"sequence_id"`
	ContactID     string `gorm:"not null;index" json:"contact_id"`
	CompanyDomain string `gorm:"index" json:"company_domain"`
	EnrolledBy    uint   `gorm:"not null;index" json:"enrolled_by"`

	// Current state
	CurrentStep   int        `gorm:"default:0" json:"current_step"`
	Status        string     `gorm:"default:'active';index" json:"status"` // active, paused, unenrolled, completed
	NextStepDueAt *time.Time `gorm:"index" json:"next_step_due_at"`

	// Relations
	Sequence OutreachSequence `json:"-"`
	StepLogs []StepLog        `gorm:"foreignKey:EnrollmentID" json:"step_logs,omitempty"`
}

// StepLog is the execution record for one step within one enrollment.
// Created pending when the enrollment advances to the step, completed
// exactly once when the step is executed or manually advanced past.
type StepLog struct {
	gorm.Model
	EnrollmentID uint `gorm:"not null;uniqueIndex:idx_step_logs_enrollment_step" json:"enrollment_id"`
	StepIndex    int  `gorm:"not null;uniqueIndex:idx_step_logs_enrollment_step" json:"step_index"`

	Channel     string     `gorm:"not null" json:"channel"`
	Status      string     `gorm:"default:'pending';index" json:"status"` // pending, completed
	CompletedAt *time.Time `json:"completed_at"`

	Outcome      *string `json:"outcome"`
	Notes        *string `json:"notes"`
	DraftContent *string `json:"draft_content"`

	// Relations
	Enrollment SequenceEnrollment `json:"-"`
}
