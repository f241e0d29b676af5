package schedule

import (
	"time"

	"flashduel-service/internal/app"
	"github.com/go-co-op/gocron/v2"
)

// Gocron adapts a gocron scheduler to the one-shot delays the match engine
// needs (the pause between a correct answer and the next-card reveal).
type Gocron struct {
	scheduler gocron.Scheduler
}

var _ app.Scheduler = (*Gocron)(nil)

func New() (*Gocron, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	return &Gocron{scheduler: scheduler}, nil
}

// After schedules fn to run once after d. The returned cancel removes the
// job if it has not fired yet.
func (g *Gocron) After(d time.Duration, fn func()) (cancel func()) {
	job, err := g.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(d))),
		gocron.NewTask(fn),
	)
	if err != nil {
		// NewJob only fails after shutdown; fall back to a plain timer so
		// an in-flight reveal still reaches clients.
		timer := time.AfterFunc(d, fn)
		return func() { timer.Stop() }
	}
	return func() { _ = g.scheduler.RemoveJob(job.ID()) }
}

// Shutdown stops the scheduler and drops pending jobs.
func (g *Gocron) Shutdown() error {
	return g.scheduler.Shutdown()
}
