package job

import (
	"context"
	"fmt"
	"math"
	"mime/multipart"
	"time"

	"go.uber.org/zap"

	jobRepo "servifix/database/repository/job"
	userRepo "servifix/database/repository/user"
	"servifix/models"
	"servifix/services/apperr"
	"servifix/services/loyalty"
	"servifix/services/mail"
	"servifix/services/notification"
	"servifix/services/storage"
)

// StatusUpdateInput carries one requested status move.
type StatusUpdateInput struct {
	Status   string           `json:"status" binding:"required"`
	Note     string           `json:"note,omitempty"`
	Location *models.GeoPoint `json:"location,omitempty"`
}

// DisputeInput carries a client's objection on a completed job.
type DisputeInput struct {
	Reason   string
	Category string
	Evidence []*multipart.FileHeader
}

// JobService defines the job-lifecycle operations.
type JobService interface {
	// Get returns a job to one of its participants.
	Get(callerID, jobID string) (*models.Job, error)
	// ListForUser returns the caller's jobs by role.
	ListForUser(userID, role string) ([]models.Job, error)
	// UpdateStatus applies one state-machine move.
	UpdateStatus(actorID, role, jobID string, input StatusUpdateInput) (*models.Job, error)
	// Approve releases escrow, credits funds and accrues loyalty points.
	Approve(clientID, jobID string) (*models.Job, error)
	// OpenDispute flips a completed job to disputed with a 50% auto-release.
	OpenDispute(ctx context.Context, clientID, jobID string, input DisputeInput) (*models.Job, error)
}

// DefaultJobService implements JobService over the Mongo repositories.
type DefaultJobService struct {
	Jobs    jobRepo.JobRepository
	Users   userRepo.UserRepository
	Loyalty loyalty.LoyaltyService
	Fanout  notification.Fanout
	Mailer  mail.Mailer
	Media   storage.MediaStore
}

func NewJobService(
	jobs jobRepo.JobRepository,
	users userRepo.UserRepository,
	loyaltySvc loyalty.LoyaltyService,
	fanout notification.Fanout,
	mailer mail.Mailer,
	media storage.MediaStore,
) *DefaultJobService {
	return &DefaultJobService{
		Jobs:    jobs,
		Users:   users,
		Loyalty: loyaltySvc,
		Fanout:  fanout,
		Mailer:  mailer,
		Media:   media,
	}
}

func (s *DefaultJobService) Get(callerID, jobID string) (*models.Job, error) {
	j, err := s.Jobs.GetByID(jobID)
	if err != nil {
		return nil, apperr.NotFound("job %s not found", jobID)
	}
	if j.ClientID != callerID && j.TechnicianID != callerID {
		return nil, apperr.Unauthorized("caller is not a participant of this job")
	}
	return j, nil
}

func (s *DefaultJobService) ListForUser(userID, role string) ([]models.Job, error) {
	var (
		jobs []models.Job
		err  error
	)
	if role == models.RoleTechnician {
		jobs, err = s.Jobs.ListByTechnician(userID)
	} else {
		jobs, err = s.Jobs.ListByClient(userID)
	}
	if err != nil {
		return nil, apperr.Infra("job list failed: %v", err)
	}
	return jobs, nil
}

func (s *DefaultJobService) UpdateStatus(actorID, role, jobID string, input StatusUpdateInput) (*models.Job, error) {
	j, err := s.Jobs.GetByID(jobID)
	if err != nil {
		return nil, apperr.NotFound("job %s not found", jobID)
	}
	if j.ClientID != actorID && j.TechnicianID != actorID {
		return nil, apperr.Unauthorized("caller is not a participant of this job")
	}

	if !CanTransition(j.Status, input.Status) {
		return nil, apperr.Conflict("cannot move job from %s to %s", j.Status, input.Status)
	}
	if IsForward(input.Status) && actorID != j.TechnicianID {
		return nil, apperr.Unauthorized("only the assigned technician advances the job")
	}

	now := time.Now()
	stamps := jobRepo.TransitionStamps{}
	switch input.Status {
	case models.JobInProgress:
		if j.StartedAt == nil {
			stamps.StartedAt = &now
		}
	case models.JobCompleted:
		stamps.FinishedAt = &now
		if j.StartedAt != nil {
			d := deriveDuration(*j.StartedAt, now)
			stamps.ActualDuration = &d
		}
	}

	entry := models.StatusHistoryEntry{
		Status:   input.Status,
		At:       now,
		Location: input.Location,
		Note:     input.Note,
		ActorID:  actorID,
	}
	ok, err := s.Jobs.Transition(jobID, j.Status, input.Status, entry, stamps)
	if err != nil {
		return nil, apperr.Infra("job transition failed: %v", err)
	}
	if !ok {
		return nil, apperr.Conflict("job %s moved concurrently, retry", jobID)
	}

	j.Status = input.Status
	j.History = append(j.History, entry)
	if stamps.StartedAt != nil {
		j.StartedAt = stamps.StartedAt
	}
	if stamps.FinishedAt != nil {
		j.FinishedAt = stamps.FinishedAt
	}
	if stamps.ActualDuration != nil {
		j.ActualDuration = stamps.ActualDuration
	}
	j.UpdatedAt = now

	s.Fanout.SendToGroup(notification.JobGroup(jobID), notification.JobStatusEvent(j, input.Note))

	zap.L().Info("job status changed",
		zap.String("job_id", jobID),
		zap.String("status", input.Status),
		zap.String("actor_id", actorID))
	return j, nil
}

// Approve releases the full escrow to the technician and rewards the
// client with loyalty points. The release is a conditional update, so a
// second approval of the same job fails with a state conflict instead of
// paying twice.
func (s *DefaultJobService) Approve(clientID, jobID string) (*models.Job, error) {
	j, err := s.Jobs.GetByID(jobID)
	if err != nil {
		return nil, apperr.NotFound("job %s not found", jobID)
	}
	if j.ClientID != clientID {
		return nil, apperr.Unauthorized("only the client approves a job")
	}
	if j.Status != models.JobCompleted {
		return nil, apperr.Conflict("only completed jobs can be approved")
	}

	now := time.Now()
	ok, err := s.Jobs.ReleaseEscrow(jobID, j.Payment.Amount, now)
	if err != nil {
		return nil, apperr.Infra("escrow release failed: %v", err)
	}
	if !ok {
		return nil, apperr.Conflict("escrow for job %s was already settled", jobID)
	}

	// The escrow is already released at this point, so a failed credit is
	// not swallowed: it is stamped on the job for reconciliation and
	// surfaced to the caller.
	if err := s.Users.CreditFunds(j.TechnicianID, j.Payment.NetToTechnician); err != nil {
		zap.L().Error("fund credit failed after escrow release",
			zap.String("job_id", jobID),
			zap.String("technician_id", j.TechnicianID),
			zap.Error(err))
		marker := models.StatusHistoryEntry{
			Status:  j.Status,
			Note:    fmt.Sprintf("escrow released but crediting $%.2f to technician %s failed; needs reconciliation", j.Payment.NetToTechnician, j.TechnicianID),
			At:      now,
			ActorID: clientID,
		}
		if histErr := s.Jobs.AppendHistory(jobID, marker); histErr != nil {
			zap.L().Error("reconciliation marker write failed",
				zap.String("job_id", jobID), zap.Error(histErr))
		}
		return nil, apperr.Infra("escrow released but technician credit failed for job %s", jobID)
	}

	points := int(math.Floor(j.Payment.Amount / 10))
	if points > 0 {
		if client, err := s.Users.GetByID(clientID); err == nil {
			if _, err := s.Loyalty.Accrue(client, points, "job "+jobID+" approved"); err != nil {
				zap.L().Error("loyalty accrual failed",
					zap.String("job_id", jobID), zap.Error(err))
			}
		}
	}

	j.Payment.Status = models.PaymentReleased
	j.Payment.ReleasedAmount = j.Payment.Amount
	j.Payment.ReleasedAt = &now
	j.UpdatedAt = now

	s.Fanout.SendToUser(j.TechnicianID, notification.FundsReleasedEvent(j))
	s.Fanout.SendToUser(clientID, notification.PointsEarnedEvent(j, points))

	if technician, err := s.Users.GetByID(j.TechnicianID); err == nil && technician.Email != "" {
		subject := "Payment released"
		body := fmt.Sprintf("The client approved job %s. $%.2f has been credited to your balance.",
			jobID, j.Payment.NetToTechnician)
		if err := s.Mailer.Send(technician.Email, subject, body); err != nil {
			zap.L().Warn("release mail failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}

	zap.L().Info("job approved",
		zap.String("job_id", jobID),
		zap.Float64("released", j.Payment.Amount),
		zap.Int("points", points))
	return j, nil
}

// OpenDispute records a client objection on a completed job. Half of the
// escrowed amount is released immediately regardless of the guarantee
// flag; the remainder awaits manual resolution.
func (s *DefaultJobService) OpenDispute(ctx context.Context, clientID, jobID string, input DisputeInput) (*models.Job, error) {
	if input.Reason == "" {
		return nil, apperr.Validation("dispute reason is required")
	}

	j, err := s.Jobs.GetByID(jobID)
	if err != nil {
		return nil, apperr.NotFound("job %s not found", jobID)
	}
	if j.ClientID != clientID {
		return nil, apperr.Unauthorized("only the client opens a dispute")
	}
	if j.Status != models.JobCompleted {
		return nil, apperr.Conflict("only completed jobs can be disputed")
	}

	// Evidence is best-effort: a failed upload is logged, not fatal.
	var evidenceURLs []string
	for _, file := range input.Evidence {
		url, err := s.uploadEvidence(ctx, jobID, file)
		if err != nil {
			zap.L().Warn("evidence upload failed",
				zap.String("job_id", jobID),
				zap.String("file", file.Filename),
				zap.Error(err))
			continue
		}
		evidenceURLs = append(evidenceURLs, url)
	}

	now := time.Now()
	autoRelease := round2(j.Payment.Amount / 2)
	dispute := models.Dispute{
		Reason:       input.Reason,
		Category:     input.Category,
		EvidenceURLs: evidenceURLs,
		Status:       models.DisputeOpen,
		AutoRefund:   autoRelease,
		OpenedAt:     now,
	}
	entry := models.StatusHistoryEntry{
		Status:  models.JobDisputed,
		At:      now,
		Note:    input.Reason,
		ActorID: clientID,
	}
	ok, err := s.Jobs.OpenDispute(jobID, dispute, entry, autoRelease)
	if err != nil {
		return nil, apperr.Infra("dispute open failed: %v", err)
	}
	if !ok {
		return nil, apperr.Conflict("job %s cannot be disputed anymore", jobID)
	}

	j.Status = models.JobDisputed
	j.Dispute = &dispute
	j.Payment.Status = models.PaymentPartial
	j.Payment.ReleasedAmount = autoRelease
	j.History = append(j.History, entry)
	j.UpdatedAt = now

	s.Fanout.SendToGroup(notification.JobGroup(jobID), notification.JobStatusEvent(j, input.Reason))

	zap.L().Info("dispute opened",
		zap.String("job_id", jobID),
		zap.String("category", input.Category),
		zap.Float64("auto_release", autoRelease))
	return j, nil
}

func (s *DefaultJobService) uploadEvidence(ctx context.Context, jobID string, header *multipart.FileHeader) (string, error) {
	if s.Media == nil {
		return "", fmt.Errorf("media store not configured")
	}
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()
	return s.Media.Upload(ctx, file, "disputes/"+jobID)
}

// deriveDuration expresses the elapsed work time in minutes under an hour,
// hours otherwise.
func deriveDuration(start, finish time.Time) models.EstimatedDuration {
	elapsed := finish.Sub(start)
	if elapsed < time.Hour {
		return models.EstimatedDuration{Value: round2(elapsed.Minutes()), Unit: "minutes"}
	}
	return models.EstimatedDuration{Value: round2(elapsed.Hours()), Unit: "hours"}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
