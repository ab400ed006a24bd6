package controller

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/models"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/utils"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/worker"
)

// errStepConflict signals that a concurrent call already completed the
// current step; the losing call must not advance the enrollment
var errStepConflict = errors.New("step already completed")

// EnrollmentController owns the enrollment lifecycle and step
// execution. It is the only writer of enrollment and step log rows.
type EnrollmentController struct {
	DB        *gorm.DB
	Logger    *log.Logger
	Drafts    utils.DraftGenerator
	Snapshots utils.SnapshotCache
	CRMSync   *worker.CRMSyncWorker
}

func NewEnrollmentController(db *gorm.DB, logger *log.Logger, drafts utils.DraftGenerator, snapshots utils.SnapshotCache, crmSync *worker.CRMSyncWorker) *EnrollmentController {
	return &EnrollmentController{
		DB:        db,
		Logger:    logger,
		Drafts:    drafts,
		Snapshots: snapshots,
		CRMSync:   crmSync,
	}
}

// advanceOrComplete moves the enrollment past its current step. If
// steps remain it creates the next pending step log and schedules it;
// otherwise it marks the enrollment completed. Returns whether the
// sequence finished. Must run inside the caller's transaction.
func (ec *EnrollmentController) advanceOrComplete(tx *gorm.DB, enrollment *models.SequenceEnrollment, steps []models.SequenceStep) (bool, error) {
	next := enrollment.CurrentStep + 1
	completed := next >= len(steps)

	if completed {
		enrollment.Status = models.EnrollmentStatusCompleted
		enrollment.NextStepDueAt = nil
	} else {
		stepLog := models.StepLog{
			EnrollmentID: enrollment.ID,
			StepIndex:    next,
			Channel:      steps[next].Channel,
			Status:       models.StepLogStatusPending,
		}
		if err := tx.Create(&stepLog).Error; err != nil {
			return false, err
		}
		due := time.Now().Add(time.Duration(steps[next].DelayDays) * 24 * time.Hour)
		enrollment.NextStepDueAt = &due
	}
	enrollment.CurrentStep = next

	// Map update so the nil due date is written through
	err := tx.Model(&models.SequenceEnrollment{}).Where("id = ?", enrollment.ID).Updates(map[string]interface{}{
		"current_step":     enrollment.CurrentStep,
		"status":           enrollment.Status,
		"next_step_due_at": enrollment.NextStepDueAt,
	}).Error
	if err != nil {
		return false, err
	}

	return completed, nil
}

// completeCurrentStepLog marks the step log at the enrollment's
// current step completed, conditioned on it still being pending. A
// zero-rows-affected result means a concurrent call already handled
// the step; the caller must not advance.
func (ec *EnrollmentController) completeCurrentStepLog(tx *gorm.DB, enrollment *models.SequenceEnrollment, outcome, notes, draftContent *string) (bool, error) {
	updates := map[string]interface{}{
		"status":       models.StepLogStatusCompleted,
		"completed_at": time.Now(),
	}
	if outcome != nil {
		updates["outcome"] = *outcome
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	if draftContent != nil {
		updates["draft_content"] = *draftContent
	}

	result := tx.Model(&models.StepLog{}).
		Where("enrollment_id = ? AND step_index = ? AND status = ?", enrollment.ID, enrollment.CurrentStep, models.StepLogStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// fetchSequenceSteps loads the sequence an enrollment runs through
func (ec *EnrollmentController) fetchSequenceSteps(enrollment *models.SequenceEnrollment) (*models.OutreachSequence, error) {
	var sequence models.OutreachSequence
	if err := ec.DB.First(&sequence, enrollment.SequenceID).Error; err != nil {
		return nil, err
	}
	return &sequence, nil
}

// fetchStepLogs returns all step logs for the enrollment ordered by index
func (ec *EnrollmentController) fetchStepLogs(enrollmentID uint) ([]models.StepLog, error) {
	var stepLogs []models.StepLog
	err := ec.DB.Where("enrollment_id = ?", enrollmentID).Order("step_index asc").Find(&stepLogs).Error
	return stepLogs, err
}
