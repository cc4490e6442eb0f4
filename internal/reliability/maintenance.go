package reliability

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/jaehoon-ko/wonfolio/internal/clientdata"
	"github.com/jaehoon-ko/wonfolio/internal/database"
)

// DailyMaintenanceJob keeps the databases healthy: WAL checkpoints, cache
// expiry sweeps, and a disk space check. Scheduled in the small hours so it
// never races a capture run.
type DailyMaintenanceJob struct {
	databases map[string]*database.DB
	cache     *clientdata.Repository
	dataDir   string
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates the daily maintenance job.
func NewDailyMaintenanceJob(
	databases map[string]*database.DB,
	cache *clientdata.Repository,
	dataDir string,
	log zerolog.Logger,
) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		databases: databases,
		cache:     cache,
		dataDir:   dataDir,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name for the scheduler.
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes maintenance. Only a critical disk shortage fails the job;
// everything else degrades with a log line.
func (j *DailyMaintenanceJob) Run() error {
	start := time.Now()

	for name, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}
	}

	if j.cache != nil {
		deleted, err := j.cache.DeleteAllExpired()
		if err != nil {
			j.log.Warn().Err(err).Msg("Cache expiry sweep failed")
		} else {
			total := int64(0)
			for _, n := range deleted {
				total += n
			}
			j.log.Debug().Int64("deleted", total).Msg("Expired cache entries removed")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().
		Dur("duration_ms", time.Since(start)).
		Msg("Daily maintenance completed")
	return nil
}

// checkDiskSpace fails when less than 500MB is free on the data volume.
func (j *DailyMaintenanceJob) checkDiskSpace() error {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat data volume: %w", err)
	}

	freeGB := float64(usage.Free) / 1e9
	switch {
	case freeGB < 0.5:
		return fmt.Errorf("only %.2f GB free on data volume", freeGB)
	case freeGB < 5.0:
		j.log.Warn().Float64("free_gb", freeGB).Msg("Disk space running low")
	default:
		j.log.Debug().Float64("free_gb", freeGB).Msg("Disk space check passed")
	}
	return nil
}
