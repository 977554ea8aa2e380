package fulfillment

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"taquilla/src/lib"
	"taquilla/src/models"
	"taquilla/src/types"
	"taquilla/src/utils"

	"github.com/go-co-op/gocron/v2"
)

const defaultPoolSize = 4
const defaultPollInterval = 15 * time.Second

// Pool drains the job queue with a fixed number of concurrent runs. A
// burst of paid movements queues up instead of spawning a goroutine per
// payment.
type Pool struct {
	queue    *JobQueue
	orch     *Orchestrator
	size     int
	interval time.Duration
	sched    lib.Scheduler
	sem      chan struct{}
}

func NewPool(queue *JobQueue, orch *Orchestrator, sched lib.Scheduler) *Pool {
	size := defaultPoolSize
	if raw := os.Getenv("FULFILLMENT_POOL_SIZE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			size = n
		}
	}
	return &Pool{
		queue:    queue,
		orch:     orch,
		size:     size,
		interval: defaultPollInterval,
		sched:    sched,
		sem:      make(chan struct{}, size),
	}
}

// Start registers the polling job on the shared scheduler. The scheduler
// itself is started during boot.
func (p *Pool) Start() error {
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(p.Drain),
	)
	if err != nil {
		log.Printf("Error registering fulfillment poll: %s\n", err.Error())
		return err
	}
	log.Printf("Fulfillment pool started: %d workers, polling every %s\n", p.size, p.interval)
	return nil
}

// Drain claims due jobs until the queue is empty or every worker slot is
// busy. Safe to call from the poll loop and from retry nudges alike.
func (p *Pool) Drain() {
	for {
		select {
		case p.sem <- struct{}{}:
		default:
			return
		}
		job, err := p.queue.Claim()
		if err != nil {
			log.Printf("Error claiming fulfillment job: %s\n", err.Error())
			<-p.sem
			return
		}
		if job == nil {
			<-p.sem
			return
		}
		go func() {
			defer func() { <-p.sem }()
			p.run(job)
		}()
	}
}

func (p *Pool) run(job *models.FulfillmentJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	log.Printf("Running fulfillment job %s for movement %s (attempt %d)\n", job.ID, job.MovementID, job.Attempts)
	if err := p.orch.Fulfill(ctx, job.MovementID); err != nil {
		p.fail(job, err)
		return
	}
	if err := p.queue.Complete(job); err != nil {
		log.Printf("Error completing job %s: %s\n", job.ID, err.Error())
	}
}

func (p *Pool) fail(job *models.FulfillmentJob, cause error) {
	runAfter, dead, err := p.queue.Fail(job, cause)
	if err != nil {
		log.Printf("Error recording failure for job %s: %s\n", job.ID, err.Error())
		return
	}
	if dead {
		log.Printf("Job %s for movement %s is dead after %d attempts: %s\n", job.ID, job.MovementID, job.Attempts, cause.Error())
		p.alert(job, cause)
		return
	}
	log.Printf("Job %s for movement %s failed, retry at %s: %s\n", job.ID, job.MovementID, runAfter.Format(time.RFC3339), cause.Error())
	p.nudge(job, runAfter)
}

// nudge schedules a one-shot wakeup at the retry time so a requeued job
// does not sit until the next poll tick.
func (p *Pool) nudge(job *models.FulfillmentJob, runAfter time.Time) {
	if p.sched == nil {
		return
	}
	vars := map[string]string{
		"name":  fmt.Sprintf("retry_%s_%d", job.ID, job.Attempts),
		"topic": utils.WithSuffix(os.Getenv("FULFILLMENT_TOPIC")),
	}
	payload := types.JSONB{"movementId": job.MovementID, "jobId": job.ID.String()}
	if _, err := lib.NewScheduledJob(p.sched, runAfter, vars, payload); err != nil {
		log.Printf("Error scheduling retry nudge for job %s: %s\n", job.ID, err.Error())
	}
}

func (p *Pool) alert(job *models.FulfillmentJob, cause error) {
	if os.Getenv("API_ENV") == "local" {
		return
	}
	topic := utils.WithSuffix(os.Getenv("ALERTS_TOPIC"))
	err := lib.SNSPublishAlert(topic, map[string]any{
		"kind":       "fulfillment_dead",
		"jobId":      job.ID.String(),
		"movementId": job.MovementID,
		"attempts":   job.Attempts,
		"error":      cause.Error(),
	})
	if err != nil {
		log.Printf("Error publishing dead-job alert for %s: %s\n", job.ID, err.Error())
	}
}
