package models

import "time"

// Job lifecycle statuses.
const (
	JobScheduled  = "scheduled"
	JobEnRoute    = "en_route"
	JobInProgress = "in_progress"
	JobCompleted  = "completed"
	JobCancelled  = "cancelled"
	JobDisputed   = "disputed"
)

// Escrow payment statuses.
const (
	PaymentPending  = "pending"
	PaymentRetained = "retained"
	PaymentReleased = "released"
	PaymentRefunded = "refunded"
	PaymentPartial  = "partial"
)

// Dispute statuses.
const (
	DisputeOpen     = "open"
	DisputeResolved = "resolved"
)

// EscrowPayment is the held amount of a job and its release state.
// Amount is fixed at creation from the accepted quote and never changes;
// only Status and the derived amounts move.
type EscrowPayment struct {
	Amount          float64 `bson:"amount" json:"amount"`
	CommissionPct   float64 `bson:"commission_pct" json:"commission_pct"`
	Commission      float64 `bson:"commission" json:"commission"`
	NetToTechnician float64 `bson:"net_to_technician" json:"net_to_technician"`
	WithGuarantee   bool    `bson:"with_guarantee" json:"with_guarantee"`
	GuaranteeFee    float64 `bson:"guarantee_fee,omitempty" json:"guarantee_fee,omitempty"`
	Status          string  `bson:"status" json:"status"`

	ReleasedAmount float64    `bson:"released_amount,omitempty" json:"released_amount,omitempty"`
	ReleasedAt     *time.Time `bson:"released_at,omitempty" json:"released_at,omitempty"`
	RefundedAt     *time.Time `bson:"refunded_at,omitempty" json:"refunded_at,omitempty"`
}

// Dispute is a client objection on a completed job. Opening one
// auto-releases half of the escrow; the rest awaits manual resolution.
type Dispute struct {
	Reason       string    `bson:"reason" json:"reason"`
	Category     string    `bson:"category,omitempty" json:"category,omitempty"`
	EvidenceURLs []string  `bson:"evidence_urls,omitempty" json:"evidence_urls,omitempty"`
	Status       string    `bson:"status" json:"status"`
	AutoRefund   float64   `bson:"auto_refund" json:"auto_refund"`
	OpenedAt     time.Time `bson:"opened_at" json:"opened_at"`
}

// StatusHistoryEntry is one timestamped move of the job state machine.
type StatusHistoryEntry struct {
	Status    string    `bson:"status" json:"status"`
	At        time.Time `bson:"at" json:"at"`
	Location  *GeoPoint `bson:"location,omitempty" json:"location,omitempty"`
	Note      string    `bson:"note,omitempty" json:"note,omitempty"`
	ActorID   string    `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
}

// Job is the work contract created 1:1 from an accepted quote. It is
// jointly referenced by client and technician and mutated only through the
// state machine's guarded operations.
type Job struct {
	ID           string `bson:"id" json:"id"`
	RequestID    string `bson:"request_id" json:"request_id"`
	QuoteID      string `bson:"quote_id" json:"quote_id"`
	ClientID     string `bson:"client_id" json:"client_id"`
	TechnicianID string `bson:"technician_id" json:"technician_id"`

	Category string `bson:"category" json:"category"`
	Status   string `bson:"status" json:"status"`

	Payment EscrowPayment        `bson:"payment" json:"payment"`
	Dispute *Dispute             `bson:"dispute,omitempty" json:"dispute,omitempty"`
	History []StatusHistoryEntry `bson:"history" json:"history"`

	StartedAt  *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	FinishedAt *time.Time `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
	// ActualDuration is derived from StartedAt when the job completes.
	ActualDuration *EstimatedDuration `bson:"actual_duration,omitempty" json:"actual_duration,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Cancellable reports whether either party may still cancel the job.
func (j *Job) Cancellable() bool {
	return j.Status == JobScheduled
}
