package worker

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/utils"
)

// maxActivityNoteLength caps the draft content mirrored into the CRM
const maxActivityNoteLength = 500

// CRMSyncJob mirrors one completed step as a CRM activity
type CRMSyncJob struct {
	EnrollmentID  uint
	StepIndex     int
	Channel       string
	CompanyDomain string
	ContactName   string
	DraftContent  string
	SyncEnabled   bool
}

// CRMSyncWorker drains a best-effort queue of completed steps and
// mirrors each as a CRM activity. Jobs are fire-and-forget: every
// failure is swallowed, nothing is retried, and enqueueing never
// blocks the request that produced the job.
type CRMSyncWorker struct {
	crm    utils.CRMService
	logger *log.Logger
	jobs   chan CRMSyncJob
}

func NewCRMSyncWorker(crm utils.CRMService, logger *log.Logger) *CRMSyncWorker {
	return &CRMSyncWorker{
		crm:    crm,
		logger: logger,
		jobs:   make(chan CRMSyncJob, 256),
	}
}

// Enqueue hands a job to the worker. Drops the job when the queue is
// full rather than blocking the caller.
func (sw *CRMSyncWorker) Enqueue(job CRMSyncJob) {
	select {
	case sw.jobs <- job:
	default:
		sw.logger.Printf("CRM sync queue full, dropping job for enrollment %d step %d", job.EnrollmentID, job.StepIndex)
	}
}

func (sw *CRMSyncWorker) Start(ctx context.Context) {
	sw.logger.Println("CRM sync worker started")

	for {
		select {
		case <-ctx.Done():
			sw.logger.Println("CRM sync worker shutting down...")
			return
		case job := <-sw.jobs:
			sw.process(job)
		}
	}
}

func (sw *CRMSyncWorker) process(job CRMSyncJob) {
	if !job.SyncEnabled || job.CompanyDomain == "" {
		return
	}

	// The job outlives the request that produced it, so it runs under
	// its own deadline rather than a request-scoped context.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	account, err := sw.crm.FindAccount(ctx, job.CompanyDomain)
	if err != nil {
		utils.LogError("crm_sync_account_lookup", err, map[string]interface{}{
			"enrollment_id":  job.EnrollmentID,
			"company_domain": job.CompanyDomain,
		})
		return
	}
	if account == nil {
		return
	}

	activity := utils.CRMActivity{
		ExternalID: uuid.New().String(),
		Title:      activityTitle(job),
		Notes:      utils.Truncate(job.DraftContent, maxActivityNoteLength),
		TargetID:   account.ID,
	}

	if err := sw.crm.CreateActivity(ctx, activity); err != nil {
		utils.LogError("crm_sync_activity_create", err, map[string]interface{}{
			"enrollment_id": job.EnrollmentID,
			"step_index":    job.StepIndex,
			"account_id":    account.ID,
		})
		return
	}

	utils.LogEvent("crm_activity_synced", map[string]interface{}{
		"enrollment_id": job.EnrollmentID,
		"step_index":    job.StepIndex,
		"channel":       job.Channel,
	})
}

func activityTitle(job CRMSyncJob) string {
	title := "Outreach step completed (" + job.Channel + ")"
	if job.ContactName != "" {
		title += " - " + job.ContactName
	}
	return title
}
