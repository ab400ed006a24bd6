package controller

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/models"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/utils"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/worker"
)

// execContext carries everything a channel handler needs to produce
// content for the current step
type execContext struct {
	ctx        context.Context
	user       *models.User
	enrollment *models.SequenceEnrollment
	step       models.SequenceStep
	snapshot   *utils.Snapshot
	contact    *utils.ContactSnapshot
}

// channelHandler produces the channel-specific execution result plus
// the generated draft content, if any. Handlers are best-effort: a
// generation failure degrades into the result, it never fails the call.
type channelHandler func(ec *EnrollmentController, x *execContext) (fiber.Map, *string)

var channelHandlers = map[string]channelHandler{
	models.ChannelEmail:           (*EnrollmentController).executeEmailStep,
	models.ChannelCall:            (*EnrollmentController).executeCallStep,
	models.ChannelLinkedInConnect: (*EnrollmentController).executeLinkedInStep,
	models.ChannelLinkedInInMail:  (*EnrollmentController).executeLinkedInStep,
	models.ChannelWhatsApp:        (*EnrollmentController).executeWhatsAppStep,
}

// ExecuteStep runs the enrollment's current step: channel dispatch,
// step log completion, advancement and best-effort CRM sync
func (ec *EnrollmentController) ExecuteStep(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Outcome      *string `json:"outcome"`
		Notes        *string `json:"notes"`
		DraftContent *string `json:"draft_content"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var enrollment models.SequenceEnrollment
	if err := ec.DB.First(&enrollment, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Enrollment not found",
		})
	}

	if enrollment.Status != models.EnrollmentStatusActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Can only execute steps on active enrollments",
		})
	}

	sequence, err := ec.fetchSequenceSteps(&enrollment)
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

	step := sequence.Steps[enrollment.CurrentStep]

	// Enrichment snapshot is best-effort; a cache miss or cache error
	// degrades to fallback display values
	snapshot, err := ec.Snapshots.Get(c.Context(), enrollment.CompanyDomain)
	if err != nil {
		ec.Logger.Printf("Snapshot lookup failed for %s: %v", enrollment.CompanyDomain, err)
		snapshot = nil
	}

	x := &execContext{
		ctx:        c.Context(),
		user:       user,
		enrollment: &enrollment,
		step:       step,
		snapshot:   snapshot,
		contact:    snapshot.Contact(enrollment.ContactID),
	}

	// Unknown channels produce no content but still complete the step
	executionResult := fiber.Map{}
	var generated *string
	if handler, ok := channelHandlers[step.Channel]; ok {
		executionResult, generated = handler(ec, x)
	}

	draftContent := input.DraftContent
	if draftContent == nil {
		draftContent = generated
	}

	var completed bool
	err = ec.DB.Transaction(func(tx *gorm.DB) error {
		applied, err := ec.completeCurrentStepLog(tx, &enrollment, input.Outcome, input.Notes, draftContent)
		if err != nil {
			return err
		}
		if !applied {
			return errStepConflict
		}

		completed, err = ec.advanceOrComplete(tx, &enrollment, sequence.Steps)
		return err
	})
	if err == errStepConflict {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Step was already completed by a concurrent request",
		})
	}
	if err != nil {
		utils.LogError("step_execution_failed", err, map[string]interface{}{
			"enrollment_id": enrollment.ID,
			"step_index":    enrollment.CurrentStep,
			"user_id":       user.ID,
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to execute step",
		})
	}

	ec.enqueueCRMSync(user, &enrollment, step, x.contact, draftContent)

	stepLogs, err := ec.fetchStepLogs(enrollment.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load step logs",
		})
	}

	return c.JSON(fiber.Map{
		"enrollment":       enrollment,
		"step_logs":        stepLogs,
		"execution_result": executionResult,
		"completed":        completed,
	})
}

// enqueueCRMSync hands the completed step to the fire-and-forget CRM
// sidecar. The response never waits on it.
func (ec *EnrollmentController) enqueueCRMSync(user *models.User, enrollment *models.SequenceEnrollment, step models.SequenceStep, contact *utils.ContactSnapshot, draftContent *string) {
	job := worker.CRMSyncJob{
		EnrollmentID:  enrollment.ID,
		StepIndex:     enrollment.CurrentStep - 1,
		Channel:       step.Channel,
		CompanyDomain: enrollment.CompanyDomain,
		SyncEnabled:   user.CRMSyncEnabled,
	}
	if contact != nil {
		job.ContactName = contact.Name
	}
	if draftContent != nil {
		job.DraftContent = *draftContent
	}
	ec.CRMSync.Enqueue(job)
}

// draftRequest assembles the personalization payload for the
// generation service from whatever enrichment is cached
func (x *execContext) draftRequest() utils.DraftRequest {
	req := utils.DraftRequest{
		ContactName: x.enrollment.ContactID,
		CompanyName: x.enrollment.CompanyDomain,
		Channel:     x.step.Channel,
		Tone:        x.step.Tone,
		Template:    x.step.Template,
	}
	if x.contact != nil {
		req.ContactName = x.contact.Name
		req.ContactTitle = x.contact.Title
		req.ContactSeniority = x.contact.Seniority
	}
	if x.snapshot != nil {
		if x.snapshot.Company.Name != "" {
			req.CompanyName = x.snapshot.Company.Name
		}
		req.CompanyIndustry = x.snapshot.Company.Industry
		req.Signals = x.snapshot.Company.Signals
		req.CRMStatuses = x.snapshot.Company.CRMStatuses
		req.ICPScore = x.snapshot.Company.ICPScore
	}
	return req
}

// executeEmailStep requests a full email draft. Generation failure is
// not sequence-fatal; the step still completes with an error marker.
func (ec *EnrollmentController) executeEmailStep(x *execContext) (fiber.Map, *string) {
	draft, err := ec.Drafts.Generate(x.ctx, x.draftRequest())
	if err != nil || draft == nil || draft.Message == "" {
		if err != nil {
			ec.Logger.Printf("Draft generation failed for enrollment %d: %v", x.enrollment.ID, err)
		}
		return fiber.Map{
			"error": "Draft generation failed — complete manually",
		}, nil
	}

	return fiber.Map{
		"subject": draft.Subject,
		"message": draft.Message,
	}, &draft.Message
}

// executeCallStep produces talking points and a CRM deep link; no
// generation call is made for calls
func (ec *EnrollmentController) executeCallStep(x *execContext) (fiber.Map, *string) {
	talkingPoints := x.step.Notes
	if talkingPoints == "" {
		talkingPoints = "Review recent signals and confirm fit before the call"
	}

	var contactCRMID, contactName string
	if x.contact != nil {
		contactCRMID = x.contact.CRMID
		contactName = x.contact.Name
	}

	result := fiber.Map{
		"talking_points": talkingPoints,
		"crm_link":       nil,
	}
	if link := utils.BuildContactLink(x.user.CRMDomain, contactCRMID, contactName, x.enrollment.CompanyDomain); link != "" {
		result["crm_link"] = link
	}

	return result, nil
}

// executeLinkedInStep requests a short connection note; best-effort,
// a failed draft leaves the note null
func (ec *EnrollmentController) executeLinkedInStep(x *execContext) (fiber.Map, *string) {
	var draftNote *string
	if draft, err := ec.Drafts.Generate(x.ctx, x.draftRequest()); err == nil && draft != nil && draft.Message != "" {
		draftNote = &draft.Message
	} else if err != nil {
		ec.Logger.Printf("LinkedIn note generation failed for enrollment %d: %v", x.enrollment.ID, err)
	}

	result := fiber.Map{
		"draft_note":   draftNote,
		"linkedin_url": nil,
		"channel":      x.step.Channel,
	}
	if x.contact != nil && x.contact.LinkedInURL != "" {
		result["linkedin_url"] = x.contact.LinkedInURL
	}

	return result, draftNote
}

// executeWhatsAppStep requests a short message draft with the same
// best-effort semantics as LinkedIn
func (ec *EnrollmentController) executeWhatsAppStep(x *execContext) (fiber.Map, *string) {
	var draftMessage *string
	if draft, err := ec.Drafts.Generate(x.ctx, x.draftRequest()); err == nil && draft != nil && draft.Message != "" {
		draftMessage = &draft.Message
	} else if err != nil {
		ec.Logger.Printf("WhatsApp draft generation failed for enrollment %d: %v", x.enrollment.ID, err)
	}

	return fiber.Map{
		"draft_message": draftMessage,
		"channel":       x.step.Channel,
	}, draftMessage
}
