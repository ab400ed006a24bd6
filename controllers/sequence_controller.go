package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/models"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/utils"
)

// SequenceController owns the sequence library and enrollment intake.
// Once an enrollment exists, only the EnrollmentController touches it.
type SequenceController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewSequenceController(db *gorm.DB, logger *log.Logger) *SequenceController {
	return &SequenceController{
		DB:     db,
		Logger: logger,
	}
}

type sequenceStepInput struct {
	Channel   string `json:"channel" validate:"required,oneof=email call linkedin_connect linkedin_inmail whatsapp"`
	Tone      string `json:"tone"`
	Template  string `json:"template"`
	DelayDays int    `json:"delay_days" validate:"gte=0"`
	Notes     string `json:"notes"`
}

// CreateSequence adds a reusable outreach plan to the library
func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name        string              `json:"name" validate:"required,min=1,max=200"`
		Description string              `json:"description"`
		Steps       []sequenceStepInput `json:"steps" validate:"required,min=1,dive"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	steps := make([]models.SequenceStep, 0, len(input.Steps))
	for _, s := range input.Steps {
		steps = append(steps, models.SequenceStep{
			Channel:   s.Channel,
			Tone:      s.Tone,
			Template:  s.Template,
			DelayDays: s.DelayDays,
			Notes:     s.Notes,
		})
	}

	sequence := models.OutreachSequence{
		UserID:      user.ID,
		Name:        input.Name,
		Description: input.Description,
		Steps:       steps,
	}
	if err := sc.DB.Create(&sequence).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create sequence",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"sequence": sequence,
	})
}

// GetSequences lists the caller's sequences
func (sc *SequenceController) GetSequences(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var sequences []models.OutreachSequence
	if err := sc.DB.Where("user_id = ?", user.ID).Order("created_at desc").Find(&sequences).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch sequences",
		})
	}

	return c.JSON(sequences)
}

// GetSequence returns one sequence by id
func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	var sequence models.OutreachSequence
	if err := sc.DB.First(&sequence, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	return c.JSON(sequence)
}

// EnrollContact starts a contact on a sequence: step 0 pending, due
// date computed from step 0's delay
func (sc *SequenceController) EnrollContact(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		SequenceID    uint   `json:"sequence_id" validate:"required"`
		ContactID     string `json:"contact_id" validate:"required"`
		CompanyDomain string `json:"company_domain"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var sequence models.OutreachSequence
	if err := sc.DB.First(&sequence, input.SequenceID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}
	if len(sequence.Steps) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Sequence has no steps",
		})
	}

	// One live run per (sequence, contact)
	var existing int64
	sc.DB.Model(&models.SequenceEnrollment{}).
		Where("sequence_id = ? AND contact_id = ? AND status IN ?", sequence.ID, input.ContactID,
			[]string{models.EnrollmentStatusActive, models.EnrollmentStatusPaused}).
		Count(&existing)
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Contact is already enrolled in this sequence",
		})
	}

	due := time.Now().Add(time.Duration(sequence.Steps[0].DelayDays) * 24 * time.Hour)
	enrollment := models.SequenceEnrollment{
		SequenceID:    sequence.ID,
		ContactID:     input.ContactID,
		CompanyDomain: input.CompanyDomain,
		EnrolledBy:    user.ID,
		CurrentStep:   0,
		Status:        models.EnrollmentStatusActive,
		NextStepDueAt: &due,
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&enrollment).Error; err != nil {
			return err
		}
		stepLog := models.StepLog{
			EnrollmentID: enrollment.ID,
			StepIndex:    0,
			Channel:      sequence.Steps[0].Channel,
			Status:       models.StepLogStatusPending,
		}
		return tx.Create(&stepLog).Error
	})
	if err != nil {
		utils.LogError("enrollment_create_failed", err, map[string]interface{}{
			"sequence_id": sequence.ID,
			"contact_id":  input.ContactID,
			"user_id":     user.ID,
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to enroll contact",
		})
	}

	utils.LogEvent("contact_enrolled", map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"sequence_id":   sequence.ID,
		"contact_id":    input.ContactID,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"enrollment": enrollment,
	})
}
