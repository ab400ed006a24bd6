package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/models"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/utils"
)

// TransitionEnrollment applies a manual lifecycle action to an
// enrollment: pause, resume, unenroll or advance
func (ec *EnrollmentController) TransitionEnrollment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Action  string  `json:"action"`
		Outcome *string `json:"outcome"`
		Notes   *string `json:"notes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if input.Action == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required field: action",
		})
	}

	var enrollment models.SequenceEnrollment
	if err := ec.DB.First(&enrollment, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Enrollment not found",
		})
	}

	switch input.Action {
	case "pause":
		return ec.pauseEnrollment(c, &enrollment, user)
	case "resume":
		return ec.resumeEnrollment(c, &enrollment, user)
	case "unenroll":
		return ec.unenrollEnrollment(c, &enrollment, user)
	case "advance":
		return ec.advanceEnrollment(c, &enrollment, user, input.Outcome, input.Notes)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid action",
		})
	}
}

// pauseEnrollment suspends an active enrollment. The stale due
// timestamp is kept for resume bookkeeping; the due-steps query
// filters by status so a paused enrollment is never surfaced as due.
func (ec *EnrollmentController) pauseEnrollment(c *fiber.Ctx, enrollment *models.SequenceEnrollment, user *models.User) error {
	if enrollment.Status != models.EnrollmentStatusActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Can only pause active enrollments",
		})
	}

	enrollment.Status = models.EnrollmentStatusPaused
	if err := ec.DB.Model(enrollment).Update("status", models.EnrollmentStatusPaused).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to pause enrollment",
		})
	}

	utils.LogEvent("enrollment_paused", map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"user_id":       user.ID,
	})

	return c.JSON(fiber.Map{"enrollment": enrollment})
}

func (ec *EnrollmentController) resumeEnrollment(c *fiber.Ctx, enrollment *models.SequenceEnrollment, user *models.User) error {
	if enrollment.Status != models.EnrollmentStatusPaused {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Can only resume paused enrollments",
		})
	}

	enrollment.Status = models.EnrollmentStatusActive
	if err := ec.DB.Model(enrollment).Update("status", models.EnrollmentStatusActive).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resume enrollment",
		})
	}

	utils.LogEvent("enrollment_resumed", map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"user_id":       user.ID,
	})

	return c.JSON(fiber.Map{"enrollment": enrollment})
}

func (ec *EnrollmentController) unenrollEnrollment(c *fiber.Ctx, enrollment *models.SequenceEnrollment, user *models.User) error {
	if enrollment.Status == models.EnrollmentStatusCompleted || enrollment.Status == models.EnrollmentStatusUnenrolled {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Enrollment is already finished",
		})
	}

	enrollment.Status = models.EnrollmentStatusUnenrolled
	if err := ec.DB.Model(enrollment).Update("status", models.EnrollmentStatusUnenrolled).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to unenroll",
		})
	}

	utils.LogEvent("enrollment_unenrolled", map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"user_id":       user.ID,
	})

	return c.JSON(fiber.Map{"enrollment": enrollment})
}

// advanceEnrollment completes the current step without executing it:
// no channel dispatch, no draft generation, no CRM sync
func (ec *EnrollmentController) advanceEnrollment(c *fiber.Ctx, enrollment *models.SequenceEnrollment, user *models.User, outcome, notes *string) error {
	if enrollment.Status != models.EnrollmentStatusActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Can only advance active enrollments",
		})
	}

	sequence, err := ec.fetchSequenceSteps(enrollment)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	if enrollment.CurrentStep >= len(sequence.Steps) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No steps remaining",
		})
	}

	var completed bool
	err = ec.DB.Transaction(func(tx *gorm.DB) error {
		applied, err := ec.completeCurrentStepLog(tx, enrollment, outcome, notes, nil)
		if err != nil {
			return err
		}
		if !applied {
			return errStepConflict
		}

		completed, err = ec.advanceOrComplete(tx, enrollment, sequence.Steps)
		return err
	})
	if err == errStepConflict {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Step was already completed by a concurrent request",
		})
	}
	if err != nil {
		utils.LogError("enrollment_advance_failed", err, map[string]interface{}{
			"enrollment_id": enrollment.ID,
			"user_id":       user.ID,
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to advance enrollment",
		})
	}

	return c.JSON(fiber.Map{
		"enrollment": enrollment,
		"completed":  completed,
	})
}
