package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaehoon-ko/wonfolio/internal/capture"
	"github.com/jaehoon-ko/wonfolio/internal/reliability"
	"github.com/jaehoon-ko/wonfolio/internal/utils"
)

// Default schedules, six-field cron with seconds. KRX closes at 15:30 KST;
// the first capture runs after that, the second after the US close (06:00
// KST) so overseas holdings pick up their final prices.
const (
	DomesticCloseSchedule = "0 40 15 * * *"
	OverseasCloseSchedule = "0 10 6 * * *"
	MaintenanceSchedule   = "0 0 3 * * *"
	BackupSchedule        = "0 30 3 * * *"
)

// CaptureJob runs the capture pipeline for the current date.
type CaptureJob struct {
	svc *capture.Service
	log zerolog.Logger
}

// NewCaptureJob creates the scheduled capture job.
func NewCaptureJob(svc *capture.Service, log zerolog.Logger) *CaptureJob {
	return &CaptureJob{
		svc: svc,
		log: log.With().Str("job", "daily_capture").Logger(),
	}
}

// Name returns the job name for the scheduler.
func (j *CaptureJob) Name() string {
	return "daily_capture"
}

// Run captures today's snapshot.
func (j *CaptureJob) Run() error {
	res, err := j.svc.CaptureSnapshot(utils.Today())
	if err != nil {
		return err
	}

	j.log.Info().
		Str("date", res.Date).
		Int("snapshots", res.Snapshots).
		Msg("Scheduled capture finished")
	return nil
}

// BackupJob runs the local daily backup, then ships a copy off-site when a
// remote target is configured.
type BackupJob struct {
	local         *reliability.BackupService
	remote        *reliability.RemoteBackupService // nil when R2 is not configured
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the scheduled backup job. remote may be nil.
func NewBackupJob(local *reliability.BackupService, remote *reliability.RemoteBackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		local:         local,
		remote:        remote,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "daily_backup").Logger(),
	}
}

// Name returns the job name for the scheduler.
func (j *BackupJob) Name() string {
	return "daily_backup"
}

// Run performs local then remote backup. A remote failure is logged, not
// returned: the local copy already exists.
func (j *BackupJob) Run() error {
	if err := j.local.DailyBackup(); err != nil {
		return err
	}

	if j.remote != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := j.remote.CreateAndUploadBackup(ctx); err != nil {
			j.log.Error().Err(err).Msg("Remote backup failed")
			return nil
		}
		if err := j.remote.RotateOldBackups(ctx, j.retentionDays); err != nil {
			j.log.Error().Err(err).Msg("Remote backup rotation failed")
		}
	}
	return nil
}
