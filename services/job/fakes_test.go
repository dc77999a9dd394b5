package job

import (
	"errors"
	"sync"
	"time"

	jobRepo "servifix/database/repository/job"
	userRepo "servifix/database/repository/user"
	"servifix/models"
)

var errNotFound = errors.New("not found")

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

func newMemJobs(jobs ...*models.Job) *memJobs {
	m := &memJobs{jobs: make(map[string]*models.Job)}
	for _, j := range jobs {
		m.jobs[j.ID] = j
	}
	return m
}

func (m *memJobs) Create(j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
	return nil
}

func (m *memJobs) GetByID(id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, errNotFound
	}
	copied := *j
	return &copied, nil
}

func (m *memJobs) ListByClient(clientID string) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Job
	for _, j := range m.jobs {
		if j.ClientID == clientID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memJobs) ListByTechnician(technicianID string) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Job
	for _, j := range m.jobs {
		if j.TechnicianID == technicianID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memJobs) Transition(id, from, to string, entry models.StatusHistoryEntry, stamps jobRepo.TransitionStamps) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != from {
		return false, nil
	}
	j.Status = to
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
	j.UpdatedAt = entry.At
	return true, nil
}

func (m *memJobs) AppendHistory(id string, entry models.StatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return errNotFound
	}
	j.History = append(j.History, entry)
	j.UpdatedAt = entry.At
	return nil
}

func (m *memJobs) ReleaseEscrow(id string, amount float64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != models.JobCompleted {
		return false, nil
	}
	if j.Payment.Status != models.PaymentPending && j.Payment.Status != models.PaymentRetained {
		return false, nil
	}
	j.Payment.Status = models.PaymentReleased
	j.Payment.ReleasedAmount = amount
	j.Payment.ReleasedAt = &at
	j.UpdatedAt = at
	return true, nil
}

func (m *memJobs) OpenDispute(id string, dispute models.Dispute, entry models.StatusHistoryEntry, autoRelease float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != models.JobCompleted {
		return false, nil
	}
	if j.Payment.Status != models.PaymentPending && j.Payment.Status != models.PaymentRetained {
		return false, nil
	}
	j.Status = models.JobDisputed
	j.Dispute = &dispute
	j.Payment.Status = models.PaymentPartial
	j.Payment.ReleasedAmount = autoRelease
	j.History = append(j.History, entry)
	j.UpdatedAt = entry.At
	return true, nil
}

type memUsers struct {
	mu        sync.Mutex
	users     map[string]*models.User
	creditErr error
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{users: make(map[string]*models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByID(id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) Create(u *models.User) error { return nil }
func (m *memUsers) Update(u *models.User) error { return nil }

func (m *memUsers) NearbyTechnicians(userRepo.TechnicianSearchCriteria) ([]userRepo.TechnicianMatch, error) {
	return nil, nil
}

func (m *memUsers) TechniciansWithinRadius(userRepo.TechnicianSearchCriteria) ([]models.User, error) {
	return nil, nil
}

func (m *memUsers) TechniciansByCategory(string, bool) ([]models.User, error) {
	return nil, nil
}

func (m *memUsers) CreditFunds(id string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creditErr != nil {
		return m.creditErr
	}
	u, ok := m.users[id]
	if !ok {
		return errNotFound
	}
	u.AccruedFunds += amount
	return nil
}

func (m *memUsers) AppendLoyalty(id string, entry models.LoyaltyEntry, delta int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	if delta < 0 && u.Loyalty.Balance < -delta {
		return false, nil
	}
	u.Loyalty.Balance += delta
	u.Loyalty.History = append(u.Loyalty.History, entry)
	return true, nil
}
