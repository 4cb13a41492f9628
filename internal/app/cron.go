package app

import (
	"github.com/mx-space/fpcollector/internal/config"
	"github.com/mx-space/fpcollector/internal/modules/backup"
	pkgcron "github.com/mx-space/fpcollector/internal/pkg/cron"
	"github.com/mx-space/fpcollector/internal/store"
	"go.uber.org/zap"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, gw store.Gateway, cfg *config.AppConfig, logger *zap.Logger) error {
	if !cfg.Backup.Enable {
		return nil
	}
	var opts []backup.Option
	if cfg.Backup.S3.Enabled() {
		uploader, err := backup.NewS3Uploader(cfg.Backup.S3)
		if err != nil {
			return err
		}
		opts = append(opts, backup.WithUploader(uploader, cfg.Backup.S3.Prefix))
	}
	svc := backup.NewService(gw, cfg.BackupDir(), logger, opts...)
	return sched.Register(svc.Job(cfg.Backup.Interval))
}
