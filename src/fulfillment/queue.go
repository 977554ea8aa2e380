package fulfillment

import (
	"math"
	"time"

	"taquilla/src/models"
	"taquilla/src/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const backoffBase = 30 * time.Second

// JobQueue is the durable outbox of fulfillment work. A job row survives a
// crash; workers claim rows with a skip-locked read so a burst of paid
// movements never spawns more concurrent runs than the pool allows.
type JobQueue struct {
	db *gorm.DB
}

func NewJobQueue(db *gorm.DB) *JobQueue {
	return &JobQueue{db: db}
}

// Enqueue records one unit of fulfillment work. A movement with a job
// already queued or running is not enqueued twice.
func (q *JobQueue) Enqueue(movementId string) (*models.FulfillmentJob, error) {
	var existing models.FulfillmentJob
	err := q.db.
		Where("movement_id = ? AND status IN (?)", movementId, []types.JobStatus{types.JOB_QUEUED, types.JOB_RUNNING}).
		First(&existing).
		Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	job := models.FulfillmentJob{
		MovementID: movementId,
		Status:     types.JOB_QUEUED,
		RunAfter:   time.Now(),
	}
	if err := q.db.Create(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// Claim picks the oldest due job and marks it running. Returns nil when no
// job is due.
func (q *JobQueue) Claim() (*models.FulfillmentJob, error) {
	var job *models.FulfillmentJob
	err := q.db.Transaction(func(tx *gorm.DB) error {
		var candidate models.FulfillmentJob
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND run_after <= ?", types.JOB_QUEUED, time.Now()).
			Order("run_after ASC").
			First(&candidate).
			Error
		if err != nil {
			return err
		}
		if err := tx.
			Model(&models.FulfillmentJob{}).
			Where("id = ?", candidate.ID).
			Updates(map[string]any{
				"status":   types.JOB_RUNNING,
				"attempts": candidate.Attempts + 1,
			}).
			Error; err != nil {
			return err
		}
		candidate.Status = types.JOB_RUNNING
		candidate.Attempts++
		job = &candidate
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (q *JobQueue) Complete(job *models.FulfillmentJob) error {
	return q.db.
		Model(&models.FulfillmentJob{}).
		Where("id = ?", job.ID).
		Update("status", types.JOB_DONE).
		Error
}

// Fail re-queues the job with exponential backoff, or parks it as dead
// once its attempts are exhausted. Returns the next run time and whether
// the job is dead.
func (q *JobQueue) Fail(job *models.FulfillmentJob, cause error) (time.Time, bool, error) {
	msg := cause.Error()
	if job.Attempts >= job.MaxAttempts {
		err := q.db.
			Model(&models.FulfillmentJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]any{
				"status":     types.JOB_DEAD,
				"last_error": msg,
			}).
			Error
		return time.Time{}, true, err
	}
	delay := time.Duration(math.Pow(2, float64(job.Attempts-1))) * backoffBase
	runAfter := time.Now().Add(delay)
	err := q.db.
		Model(&models.FulfillmentJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":     types.JOB_QUEUED,
			"run_after":  runAfter,
			"last_error": msg,
		}).
		Error
	return runAfter, false, err
}

// Recover re-queues jobs left running by a previous process, called once
// at boot before workers start.
func (q *JobQueue) Recover() error {
	res := q.db.
		Model(&models.FulfillmentJob{}).
		Where("status = ?", types.JOB_RUNNING).
		Update("status", types.JOB_QUEUED)
	return res.Error
}

func (q *JobQueue) ListForMovement(movementId string) ([]models.FulfillmentJob, error) {
	var jobs []models.FulfillmentJob
	err := q.db.
		Where(&models.FulfillmentJob{MovementID: movementId}).
		Order("created_at DESC").
		Find(&jobs).
		Error
	return jobs, err
}
