package controller

import (
	"fmt"
	"testing"
	"time"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/models"
)

func transitionPath(id uint) string {
	return fmt.Sprintf("/api/v1/enrollments/%d/transition", id)
}

func TestPauseThenResumeKeepsProgress(t *testing.T) {
	env := newTestEnv(t)
	sequence := env.createSequence(t, twoStepSequence())
	enrollment := env.createEnrollment(t, sequence, "contact-1", "acme.io")

	status, _ := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{"action": "pause"})
	if status != 200 {
		t.Fatalf("pause status = %d, want 200", status)
	}

	paused := env.reloadEnrollment(t, enrollment.ID)
	if paused.Status != models.EnrollmentStatusPaused {
		t.Errorf("Status = %q, want paused", paused.Status)
	}
	if paused.CurrentStep != 0 {
		t.Errorf("CurrentStep = %d, want 0", paused.CurrentStep)
	}
	// Due timestamp is retained for resume bookkeeping
	if paused.NextStepDueAt == nil {
		t.Error("NextStepDueAt should be kept while paused")
	}

	status, _ = env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{"action": "resume"})
	if status != 200 {
		t.Fatalf("resume status = %d, want 200", status)
	}

	resumed := env.reloadEnrollment(t, enrollment.ID)
	if resumed.Status != models.EnrollmentStatusActive {
		t.Errorf("Status = %q, want active", resumed.Status)
	}
	if resumed.CurrentStep != 0 {
		t.Errorf("CurrentStep = %d, want 0", resumed.CurrentStep)
	}

	stepLogs := env.loadStepLogs(t, enrollment.ID)
	if len(stepLogs) != 1 || stepLogs[0].Status != models.StepLogStatusPending {
		t.Errorf("step logs changed by pause/resume: %+v", stepLogs)
	}
}

func TestPauseRequiresActive(t *testing.T) {
	env := newTestEnv(t)
	sequence := env.createSequence(t, twoStepSequence())
	enrollment := env.createEnrollment(t, sequence, "contact-1", "acme.io")
	env.db.Model(enrollment).Update("status", models.EnrollmentStatusPaused)

	status, body := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{"action": "pause"})
	if status != 400 {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["error"] != "Can only pause active enrollments" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestResumeRequiresPaused(t *testing.T) {
	env := newTestEnv(t)
	sequence := env.createSequence(t, twoStepSequence())
	enrollment := env.createEnrollment(t, sequence, "contact-1", "acme.io")

	status, body := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{"action": "resume"})
	if status != 400 {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["error"] != "Can only resume paused enrollments" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestUnenrollIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	sequence := env.createSequence(t, twoStepSequence())
	enrollment := env.createEnrollment(t, sequence, "contact-1", "acme.io")

	status, _ := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{"action": "unenroll"})
	if status != 200 {
		t.Fatalf("unenroll status = %d, want 200", status)
	}
	if got := env.reloadEnrollment(t, enrollment.ID).Status; got != models.EnrollmentStatusUnenrolled {
		t.Fatalf("Status = %q, want unenrolled", got)
	}

	// Every follow-up action must be rejected
	for _, action := range []string{"unenroll", "pause", "resume", "advance"} {
		status, body := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{"action": action})
		if status != 400 {
			t.Errorf("%s after unenroll: status = %d, want 400", action, status)
		}
		if body["error"] == nil {
			t.Errorf("%s after unenroll: missing error message", action)
		}
	}
}

func TestUnenrollCompletedEnrollment(t *testing.T) {
	env := newTestEnv(t)
	sequence := env.createSequence(t, twoStepSequence())
	enrollment := env.createEnrollment(t, sequence, "contact-1", "acme.io")
	env.db.Model(enrollment).Updates(map[string]interface{}{
		"status":           models.EnrollmentStatusCompleted,
		"current_step":     2,
		"next_step_due_at": nil,
	})

	status, body := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{"action": "unenroll"})
	if status != 400 {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["error"] != "Enrollment is already finished" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestAdvanceCompletesStepAndSchedulesNext(t *testing.T) {
	env := newTestEnv(t)
	sequence := env.createSequence(t, twoStepSequence())
	enrollment := env.createEnrollment(t, sequence, "contact-1", "acme.io")

	status, body := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]interface{}{
		"action":  "advance",
		"outcome": "replied",
		"notes":   "asked for pricing",
	})
	if status != 200 {
		t.Fatalf("status = %d, want 200: %v", status, body)
	}
	if body["completed"] != false {
		t.Errorf("completed = %v, want false", body["completed"])
	}

	updated := env.reloadEnrollment(t, enrollment.ID)
	if updated.CurrentStep != 1 {
		t.Errorf("CurrentStep = %d, want 1", updated.CurrentStep)
	}
	if updated.Status != models.EnrollmentStatusActive {
		t.Errorf("Status = %q, want active", updated.Status)
	}
	if updated.NextStepDueAt == nil {
		t.Fatal("NextStepDueAt should be set")
	}
	wantDue := time.Now().Add(2 * 24 * time.Hour)
	if diff := updated.NextStepDueAt.Sub(wantDue); diff < -time.Minute || diff > time.Minute {
		t.Errorf("NextStepDueAt = %v, want ~%v", updated.NextStepDueAt, wantDue)
	}

	stepLogs := env.loadStepLogs(t, enrollment.ID)
	if len(stepLogs) != 2 {
		t.Fatalf("step log count = %d, want 2", len(stepLogs))
	}
	if stepLogs[0].Status != models.StepLogStatusCompleted {
		t.Errorf("step 0 status = %q, want completed", stepLogs[0].Status)
	}
	if stepLogs[0].Outcome == nil || *stepLogs[0].Outcome != "replied" {
		t.Errorf("step 0 outcome = %v, want replied", stepLogs[0].Outcome)
	}
	if stepLogs[0].DraftContent != nil {
		t.Error("manual advance must not record draft content")
	}
	if stepLogs[1].Status != models.StepLogStatusPending || stepLogs[1].Channel != models.ChannelCall {
		t.Errorf("step 1 = %+v, want pending call", stepLogs[1])
	}
}

func TestAdvanceLastStepCompletesSequence(t *testing.T) {
	env := newTestEnv(t)
	sequence := env.createSequence(t, twoStepSequence())
	enrollment := env.createEnrollment(t, sequence, "contact-1", "acme.io")

	if status, _ := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{"action": "advance"}); status != 200 {
		t.Fatalf("first advance failed: %d", status)
	}
	status, body := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{"action": "advance"})
	if status != 200 {
		t.Fatalf("second advance status = %d, want 200", status)
	}
	if body["completed"] != true {
		t.Errorf("completed = %v, want true", body["completed"])
	}

	updated := env.reloadEnrollment(t, enrollment.ID)
	if updated.Status != models.EnrollmentStatusCompleted {
		t.Errorf("Status = %q, want completed", updated.Status)
	}
	if updated.CurrentStep != len(sequence.Steps) {
		t.Errorf("CurrentStep = %d, want %d", updated.CurrentStep, len(sequence.Steps))
	}
	if updated.NextStepDueAt != nil {
		t.Errorf("NextStepDueAt = %v, want nil", updated.NextStepDueAt)
	}
	if stepLogs := env.loadStepLogs(t, enrollment.ID); len(stepLogs) != 2 {
		t.Errorf("step log count = %d, want 2 (no log past the end)", len(stepLogs))
	}
}

func TestAdvancePausedEnrollmentRejected(t *testing.T) {
	env := newTestEnv(t)
	sequence := env.createSequence(t, twoStepSequence())
	enrollment := env.createEnrollment(t, sequence, "contact-1", "acme.io")
	env.db.Model(enrollment).Update("status", models.EnrollmentStatusPaused)

	status, body := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{"action": "advance"})
	if status != 400 {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["error"] != "Can only advance active enrollments" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestTransitionMissingAction(t *testing.T) {
	env := newTestEnv(t)
	sequence := env.createSequence(t, twoStepSequence())
	enrollment := env.createEnrollment(t, sequence, "contact-1", "acme.io")

	status, body := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{})
	if status != 400 {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["error"] != "Missing required field: action" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestTransitionInvalidAction(t *testing.T) {
	env := newTestEnv(t)
	sequence := env.createSequence(t, twoStepSequence())
	enrollment := env.createEnrollment(t, sequence, "contact-1", "acme.io")

	status, body := env.doJSON(t, "POST", transitionPath(enrollment.ID), map[string]string{"action": "restart"})
	if status != 400 {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["error"] != "Invalid action" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestTransitionEnrollmentNotFound(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.doJSON(t, "POST", "/api/v1/enrollments/9999/transition", map[string]string{"action": "pause"})
	if status != 404 {
		t.Fatalf("status = %d, want 404", status)
	}
	if body["error"] != "Enrollment not found" {
		t.Errorf("error = %q", body["error"])
	}
}
