package app

import (
	"context"

	"gorm.io/gorm"

	"threegen/internal/config"
	"threegen/internal/db"
	memberdomain "threegen/internal/domain/member"
	syncdomain "threegen/internal/domain/sync"
	"threegen/internal/identity"
	"threegen/internal/repository/remote"
	memberrepo "threegen/internal/repository/sqlite/member"
	watermarkrepo "threegen/internal/repository/sqlite/watermark"
	"threegen/internal/scheduler"
	"threegen/pkg/logger"
)

// RemoteEndpoint is the remote store as the device sees it.
type RemoteEndpoint interface {
	syncdomain.RemoteStore
	Ping(ctx context.Context) error
}

// Device owns the local store and everything that syncs it.
type Device struct {
	Members *memberdomain.Service
	Sync    *syncdomain.Service

	cfg       config.Config
	db        *gorm.DB
	remote    RemoteEndpoint
	tokenFile string
	log       logger.Logger
}

// NewDevice opens the local store and connects it to the remote service
// configured in cfg.Device.
func NewDevice(cfg config.Config, log logger.Logger) (*Device, error) {
	localDB, err := db.NewSQLite(cfg.Device.LocalDBPath, log)
	if err != nil {
		return nil, err
	}

	tokens := identity.NewTokenProvider(cfg.Device.AuthToken, cfg.Device.AuthTokenFile)
	client := remote.NewClient(cfg.Device.RemoteURL, tokens, cfg.Device.RequestTimeout)

	device := NewDeviceWith(cfg, localDB, client, tokens, log)
	device.tokenFile = cfg.Device.AuthTokenFile
	return device, nil
}

// NewDeviceWith wires a device around an already opened local store.
func NewDeviceWith(cfg config.Config, localDB *gorm.DB, endpoint RemoteEndpoint, owner syncdomain.IdentityProvider, log logger.Logger) *Device {
	local := memberrepo.NewSQLite(localDB)
	watermarks := watermarkrepo.NewSQLite(localDB)

	return &Device{
		Members: memberdomain.NewService(local, owner),
		Sync:    syncdomain.NewService(local, endpoint, watermarks, owner),
		cfg:     cfg,
		db:      localDB,
		remote:  endpoint,
		log:     log,
	}
}

// NewScheduler returns a scheduler with the push and pull jobs registered.
// Push is registered first so local edits leave before remote ones arrive.
func (d *Device) NewScheduler(notifier scheduler.Notifier) *scheduler.Scheduler {
	sched := scheduler.New(scheduler.Config{
		PeriodicInterval:       d.cfg.Sync.PeriodicInterval,
		ConstraintPollInterval: d.cfg.Sync.ConstraintPollInterval,
		RunTimeout:             d.cfg.Sync.RunTimeout,
		Retry: scheduler.RetryPolicy{
			BaseDelay:   d.cfg.Sync.RetryBaseDelay,
			MaxDelay:    d.cfg.Sync.RetryMaxDelay,
			MaxAttempts: d.cfg.Sync.MaxAttempts,
		},
	}, d.constraints(), notifier, d.log)

	sched.Register(scheduler.KindPush, d.pushJob)
	sched.Register(scheduler.KindPull, d.pullJob)
	return sched
}

// RunSync starts the scheduler with an immediate run of both jobs and keeps
// it fed from the periodic timer, sign-in changes and regained connectivity.
// It returns when ctx is done.
func (d *Device) RunSync(ctx context.Context, sched *scheduler.Scheduler, firstRun bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if d.tokenFile != "" {
		err := scheduler.WatchFile(ctx, d.tokenFile, d.log, func() {
			d.log.Info("device.sync: session changed, scheduling sync")
			sched.EnqueueAll("sign-in", false, scheduler.EnqueueReplace)
		})
		if err != nil {
			d.log.BusinessError("device.sync: token file watch disabled", err, "path", d.tokenFile)
		}
	}

	go scheduler.WatchConnectivity(ctx, d.remote, d.cfg.Sync.ConstraintPollInterval, d.log, func() {
		sched.EnqueueAll("connectivity", false, scheduler.EnqueueKeep)
	})

	sched.EnqueueAll("startup", firstRun, scheduler.EnqueueReplace)
	return sched.Run(ctx)
}

func (d *Device) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Device) pushJob(ctx context.Context, request scheduler.Request) error {
	result, err := d.Sync.Push(ctx)
	if result != nil {
		d.log.Info("device.push: finished", "reason", request.Reason, "pushed", result.Pushed, "deleted", result.Deleted, "failed", result.Failed)
		for _, outcome := range result.Outcomes {
			if outcome.Status == syncdomain.OutcomeFailed || outcome.Status == syncdomain.OutcomeStillDirty {
				d.log.Warn("device.push: " + outcome.Message())
			}
		}
	}
	return err
}

func (d *Device) pullJob(ctx context.Context, request scheduler.Request) error {
	result, err := d.Sync.Pull(ctx, syncdomain.PullInput{IsFirstRun: request.FirstRun})
	if result != nil {
		d.log.Info("device.pull: finished",
			"reason", request.Reason,
			"full", result.FullPull,
			"fetched", result.Fetched,
			"inserted", result.Inserted,
			"updated", result.Updated,
			"deleted", result.Deleted,
			"conflicts", result.Conflicts,
			"failed", result.Failed,
			"watermark", result.Watermark.Timestamp,
		)
	}
	return err
}

func (d *Device) constraints() scheduler.Constraints {
	constraints := []scheduler.Constraints{scheduler.NetworkConstraint(d.remote)}
	if d.cfg.Sync.MinBatteryPercent > 0 {
		constraints = append(constraints, scheduler.BatteryConstraint{MinPercent: d.cfg.Sync.MinBatteryPercent})
	}
	return scheduler.All(constraints...)
}
