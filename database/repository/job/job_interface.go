package jobRepo

import (
	"time"

	"servifix/models"
)

// TransitionStamps carries the optional timestamps a transition sets.
type TransitionStamps struct {
	StartedAt      *time.Time
	FinishedAt     *time.Time
	ActualDuration *models.EstimatedDuration
}

// JobRepository defines data access for jobs. Every mutation that depends
// on the current status is a conditional update so concurrent callers can
// never both win.
type JobRepository interface {
	// Create inserts a new job record.
	Create(job *models.Job) error
	// GetByID retrieves a job by its unique ID.
	GetByID(id string) (*models.Job, error)
	// ListByClient returns a client's jobs, newest first.
	ListByClient(clientID string) ([]models.Job, error)
	// ListByTechnician returns a technician's jobs, newest first.
	ListByTechnician(technicianID string) ([]models.Job, error)
	// Transition flips the status from->to, appends the history entry and
	// applies the stamps. Returns false when the job was not in from.
	Transition(id, from, to string, entry models.StatusHistoryEntry, stamps TransitionStamps) (bool, error)
	// AppendHistory records an entry without touching the status, for
	// annotations like a payout that needs manual reconciliation.
	AppendHistory(id string, entry models.StatusHistoryEntry) error
	// ReleaseEscrow releases the full escrow of a completed job. Returns
	// false when the job is not completed or the payment already moved.
	ReleaseEscrow(id string, amount float64, at time.Time) (bool, error)
	// OpenDispute flips a completed job to disputed, records the dispute
	// and part-releases the escrow. Returns false when the precondition
	// did not hold.
	OpenDispute(id string, dispute models.Dispute, entry models.StatusHistoryEntry, autoRelease float64) (bool, error)
}
