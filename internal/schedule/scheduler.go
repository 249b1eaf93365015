package schedule

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) (bool, error)
	Start(ctx context.Context)
	Stop()
}

type CronScheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	ctx     context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
	}
}

// AddJob registers job under spec. An empty spec leaves the job disabled and
// reports false.
func (c *CronScheduler) AddJob(job Job, spec string) (bool, error) {
	spec = strings.TrimSpace(spec)
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", job.Name()), zap.String("spec", spec))
	if spec == "" {
		logger.Info("job disabled: no schedule")
		return false, nil
	}
	guarded := &guardedJob{job: job, spec: spec}
	entryID, err := c.cron.AddFunc(spec, func() { guarded.run(c.context()) })
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return false, err
	}
	c.entries[job.Name()] = entryID
	logger.Info("job scheduled")
	return true, nil
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

func (c *CronScheduler) context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// guardedJob skips a tick while the previous run is still going.
type guardedJob struct {
	job     Job
	spec    string
	running atomic.Bool
}

func (g *guardedJob) run(ctx context.Context) bool {
	logger := logutil.GetLogger(ctx).With(
		zap.String("job", g.job.Name()),
		zap.String("spec", g.spec),
	)
	if !g.running.CompareAndSwap(false, true) {
		logger.Info("job skipped: still running")
		return false
	}
	defer g.running.Store(false)

	start := time.Now()
	logger.Info("job started")
	err := g.job.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
		return true
	}
	logger.Info("job finished", zap.Duration("duration", elapsed))
	return true
}
