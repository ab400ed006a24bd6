package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/models"
)

// GetEnrollment returns an enrollment with its full step history
func (ec *EnrollmentController) GetEnrollment(c *fiber.Ctx) error {
	var enrollment models.SequenceEnrollment
	if err := ec.DB.First(&enrollment, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Enrollment not found",
		})
	}

	stepLogs, err := ec.fetchStepLogs(enrollment.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load step logs",
		})
	}

	return c.JSON(fiber.Map{
		"enrollment": enrollment,
		"step_logs":  stepLogs,
	})
}

// GetDueSteps lists every active enrollment whose next step is due,
// joined with its sequence and cache-resolved display names. Pure
// query: the caller triggers execution per item.
func (ec *EnrollmentController) GetDueSteps(c *fiber.Ctx) error {
	var enrollments []models.SequenceEnrollment
	err := ec.DB.
		Where("status = ? AND next_step_due_at IS NOT NULL AND next_step_due_at <= ?", models.EnrollmentStatusActive, time.Now()).
		Order("next_step_due_at asc").
		Find(&enrollments).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to query due enrollments",
		})
	}

	// Batch-load the referenced sequences
	sequenceIDs := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		sequenceIDs = append(sequenceIDs, e.SequenceID)
	}
	sequences := make(map[uint]models.OutreachSequence)
	if len(sequenceIDs) > 0 {
		var rows []models.OutreachSequence
		if err := ec.DB.Where("id IN ?", sequenceIDs).Find(&rows).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load sequences",
			})
		}
		for _, s := range rows {
			sequences[s.ID] = s
		}
	}

	dueSteps := make([]fiber.Map, 0, len(enrollments))
	for _, enrollment := range enrollments {
		sequence, ok := sequences[enrollment.SequenceID]
		if !ok {
			ec.Logger.Printf("Due enrollment %d references missing sequence %d", enrollment.ID, enrollment.SequenceID)
			continue
		}

		contactName := enrollment.ContactID
		companyName := enrollment.CompanyDomain

		// Cache miss degrades to the raw identifiers
		snapshot, err := ec.Snapshots.Get(c.Context(), enrollment.CompanyDomain)
		if err != nil {
			ec.Logger.Printf("Snapshot lookup failed for %s: %v", enrollment.CompanyDomain, err)
		} else if snapshot != nil {
			if contact := snapshot.Contact(enrollment.ContactID); contact != nil && contact.Name != "" {
				contactName = contact.Name
			}
			if snapshot.Company.Name != "" {
				companyName = snapshot.Company.Name
			}
		}

		dueSteps = append(dueSteps, fiber.Map{
			"enrollment":   enrollment,
			"sequence":     sequence,
			"contact_name": contactName,
			"company_name": companyName,
		})
	}

	return c.JSON(fiber.Map{
		"due_steps": dueSteps,
		"count":     len(dueSteps),
	})
}
