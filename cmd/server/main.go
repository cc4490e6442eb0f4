package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jaehoon-ko/wonfolio/internal/capture"
	"github.com/jaehoon-ko/wonfolio/internal/clientdata"
	"github.com/jaehoon-ko/wonfolio/internal/clients/benchmark"
	"github.com/jaehoon-ko/wonfolio/internal/clients/brokerage"
	"github.com/jaehoon-ko/wonfolio/internal/config"
	"github.com/jaehoon-ko/wonfolio/internal/database"
	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/modules/deposits"
	"github.com/jaehoon-ko/wonfolio/internal/modules/manual"
	"github.com/jaehoon-ko/wonfolio/internal/modules/registry"
	"github.com/jaehoon-ko/wonfolio/internal/modules/returns"
	returnshandlers "github.com/jaehoon-ko/wonfolio/internal/modules/returns/handlers"
	"github.com/jaehoon-ko/wonfolio/internal/modules/snapshots"
	"github.com/jaehoon-ko/wonfolio/internal/modules/summary"
	"github.com/jaehoon-ko/wonfolio/internal/reliability"
	"github.com/jaehoon-ko/wonfolio/internal/scheduler"
	"github.com/jaehoon-ko/wonfolio/internal/server"
	"github.com/jaehoon-ko/wonfolio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)
	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting wonfolio")

	// The portfolio database holds years of valuation history; the cache
	// database holds re-fetchable external data.
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{portfolioDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	conn := portfolioDB.Conn()
	registryRepo := registry.NewRepository(conn, log)
	snapshotRepo := snapshots.NewRepository(conn, log)
	depositRepo := deposits.NewRepository(conn, log)
	summaryRepo := summary.NewRepository(conn, log)
	manualRepo := manual.NewRepository(conn, log)

	cacheRepo := clientdata.NewRepository(cacheDB.Conn())

	var benchmarks domain.BenchmarkSource
	if cfg.Benchmarks.Enabled {
		benchmarks = benchmark.NewClient(cacheRepo, log)
	}

	var feeds []domain.HoldingsFeed
	if cfg.Brokerage.Enabled() {
		feeds = append(feeds, brokerage.NewClient(brokerage.Config{
			BaseURL:     cfg.Brokerage.BaseURL,
			AppKey:      cfg.Brokerage.AppKey,
			AppSecret:   cfg.Brokerage.AppSecret,
			AccountNo:   cfg.Brokerage.AccountNo,
			AccountCode: cfg.Brokerage.AccountCode,
		}, log))
	} else {
		log.Warn().Msg("Brokerage credentials not configured, feed disabled")
	}

	aggregator := summary.NewAggregator(snapshotRepo, depositRepo, summaryRepo, benchmarks, log)
	captureSvc := capture.NewService(feeds, registryRepo, snapshotRepo, manualRepo, aggregator, log)
	returnsSvc := returns.NewService(summaryRepo, snapshotRepo, benchmarks, log)

	databases := map[string]*database.DB{"portfolio": portfolioDB, "cache": cacheDB}
	backupSvc := reliability.NewBackupService(databases, cfg.BackupDir, cfg.Backup.RetentionDays, log)

	var remoteBackup *reliability.RemoteBackupService
	r2cfg := reliability.R2Config{
		AccountID:       cfg.Backup.R2AccountID,
		AccessKeyID:     cfg.Backup.R2AccessKeyID,
		SecretAccessKey: cfg.Backup.R2SecretAccessKey,
		Bucket:          cfg.Backup.R2Bucket,
	}
	if r2cfg.Enabled() {
		r2Client, err := reliability.NewR2Client(r2cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize R2 client, off-site backups disabled")
		} else {
			remoteBackup = reliability.NewRemoteBackupService(r2Client, backupSvc, cfg.DataDir, log)
		}
	}

	sched := scheduler.New(log)
	captureJob := scheduler.NewCaptureJob(captureSvc, log)

	domesticSchedule := cfg.Capture.DomesticSchedule
	if domesticSchedule == "" {
		domesticSchedule = scheduler.DomesticCloseSchedule
	}
	overseasSchedule := cfg.Capture.OverseasSchedule
	if overseasSchedule == "" {
		overseasSchedule = scheduler.OverseasCloseSchedule
	}

	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{domesticSchedule, captureJob},
		{overseasSchedule, captureJob},
		{scheduler.MaintenanceSchedule, reliability.NewDailyMaintenanceJob(databases, cacheRepo, cfg.DataDir, log)},
		{scheduler.BackupSchedule, scheduler.NewBackupJob(backupSvc, remoteBackup, cfg.Backup.RetentionDays, log)},
	}
	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			log.Fatal().Err(err).Str("job", j.job.Name()).Msg("Failed to register job")
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:              log,
		Port:             cfg.Port,
		DevMode:          cfg.DevMode,
		DataDir:          cfg.DataDir,
		PortfolioDB:      portfolioDB,
		CacheDB:          cacheDB,
		Capture:          captureSvc,
		ReturnsHandlers:  returnshandlers.NewHandlers(returnsSvc, log),
		DepositHandlers:  deposits.NewHandlers(depositRepo, log),
		ManualHandlers:   manual.NewHandlers(manualRepo, log),
		RegistryHandlers: registry.NewHandlers(registryRepo, log),
		SnapshotHandlers: snapshots.NewHandlers(snapshotRepo, log),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
