package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/config"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/models"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/utils"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/worker"
)

// fakeDraftGenerator scripts the generation service's behavior
type fakeDraftGenerator struct {
	resp  *utils.DraftResponse
	err   error
	calls []utils.DraftRequest
}

func (f *fakeDraftGenerator) Generate(_ context.Context, req utils.DraftRequest) (*utils.DraftResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// fakeCRMService records sidecar traffic without a real CRM
type fakeCRMService struct {
	account    *utils.CRMAccount
	activities []utils.CRMActivity
}

func (f *fakeCRMService) FindAccount(_ context.Context, _ string) (*utils.CRMAccount, error) {
	return f.account, nil
}

func (f *fakeCRMService) CreateActivity(_ context.Context, activity utils.CRMActivity) error {
	f.activities = append(f.activities, activity)
	return nil
}

type testEnv struct {
	db        *gorm.DB
	app       *fiber.App
	user      *models.User
	drafts    *fakeDraftGenerator
	snapshots *utils.MemorySnapshotCache
	crm       *fakeCRMService
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := config.MigrateDB(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	user := &models.User{
		Email:          "rep@example.com",
		Name:           "Test Rep",
		IsActive:       true,
		CRMSyncEnabled: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	drafts := &fakeDraftGenerator{resp: &utils.DraftResponse{Subject: "Quick question", Message: "Hi there"}}
	snapshots := utils.NewMemorySnapshotCache(time.Minute)
	crm := &fakeCRMService{}
	crmSync := worker.NewCRMSyncWorker(crm, log.New(io.Discard, "", 0))

	enrollmentController := NewEnrollmentController(db, log.New(io.Discard, "", 0), drafts, snapshots, crmSync)
	sequenceController := NewSequenceController(db, log.New(io.Discard, "", 0))

	app := fiber.New()
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Locals("user", user)
		return c.Next()
	})

	sequence := api.Group("/sequences")
	sequence.Post("/", sequenceController.CreateSequence)
	sequence.Get("/", sequenceController.GetSequences)
	sequence.Get("/:id", sequenceController.GetSequence)

	enrollment := api.Group("/enrollments")
	enrollment.Post("/", sequenceController.EnrollContact)
	enrollment.Get("/due", enrollmentController.GetDueSteps)
	enrollment.Get("/:id", enrollmentController.GetEnrollment)
	enrollment.Post("/:id/transition", enrollmentController.TransitionEnrollment)
	enrollment.Post("/:id/execute", enrollmentController.ExecuteStep)

	return &testEnv{db: db, app: app, user: user, drafts: drafts, snapshots: snapshots, crm: crm}
}

// doJSON fires a request at the test app and decodes the JSON reply
func (env *testEnv) doJSON(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

func (env *testEnv) createSequence(t *testing.T, steps []models.SequenceStep) *models.OutreachSequence {
	t.Helper()
	sequence := &models.OutreachSequence{
		UserID: env.user.ID,
		Name:   "Test sequence",
		Steps:  steps,
	}
	if err := env.db.Create(sequence).Error; err != nil {
		t.Fatalf("create sequence: %v", err)
	}
	return sequence
}

// createEnrollment seeds an active enrollment at step 0 with its
// pending step log, the way EnrollContact does
func (env *testEnv) createEnrollment(t *testing.T, sequence *models.OutreachSequence, contactID, domain string) *models.SequenceEnrollment {
	t.Helper()
	due := time.Now().Add(time.Duration(sequence.Steps[0].DelayDays) * 24 * time.Hour)
	enrollment := &models.SequenceEnrollment{
		SequenceID:    sequence.ID,
		ContactID:     contactID,
		CompanyDomain: domain,
		EnrolledBy:    env.user.ID,
		CurrentStep:   0,
		Status:        models.EnrollmentStatusActive,
		NextStepDueAt: &due,
	}
	if err := env.db.Create(enrollment).Error; err != nil {
		t.Fatalf("create enrollment: %v", err)
	}
	stepLog := &models.StepLog{
		EnrollmentID: enrollment.ID,
		StepIndex:    0,
		Channel:      sequence.Steps[0].Channel,
		Status:       models.StepLogStatusPending,
	}
	if err := env.db.Create(stepLog).Error; err != nil {
		t.Fatalf("create step log: %v", err)
	}
	return enrollment
}

func (env *testEnv) reloadEnrollment(t *testing.T, id uint) *models.SequenceEnrollment {
	t.Helper()
	var enrollment models.SequenceEnrollment
	if err := env.db.First(&enrollment, id).Error; err != nil {
		t.Fatalf("reload enrollment %d: %v", id, err)
	}
	return &enrollment
}

func (env *testEnv) loadStepLogs(t *testing.T, enrollmentID uint) []models.StepLog {
	t.Helper()
	var stepLogs []models.StepLog
	if err := env.db.Where("enrollment_id = ?", enrollmentID).Order("step_index asc").Find(&stepLogs).Error; err != nil {
		t.Fatalf("load step logs: %v", err)
	}
	return stepLogs
}

func twoStepSequence() []models.SequenceStep {
	return []models.SequenceStep{
		{Channel: models.ChannelEmail, Tone: "friendly", Template: "intro", DelayDays: 0},
		{Channel: models.ChannelCall, DelayDays: 2, Notes: "Mention the hiring spike"},
	}
}
