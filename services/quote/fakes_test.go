package quote

import (
	"errors"
	"sync"
	"time"

	jobRepo "servifix/database/repository/job"
	quoteRepo "servifix/database/repository/quote"
	requestRepo "servifix/database/repository/request"
	userRepo "servifix/database/repository/user"
	"servifix/models"
)

var errNotFound = errors.New("not found")

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
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

func (m *memUsers) Create(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) Update(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

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

type memRequests struct {
	mu       sync.Mutex
	requests map[string]*models.ServiceRequest
}

func newMemRequests(requests ...*models.ServiceRequest) *memRequests {
	m := &memRequests{requests: make(map[string]*models.ServiceRequest)}
	for _, r := range requests {
		m.requests[r.ID] = r
	}
	return m
}

func (m *memRequests) Create(r *models.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	return nil
}

func (m *memRequests) GetByID(id string) (*models.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, errNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *memRequests) ListByClient(clientID string) ([]models.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ServiceRequest
	for _, r := range m.requests {
		if r.ClientID == clientID {
			out = append(out, *r)
		}
	}
	return out, nil
}

// SetStatusIf mirrors the conditional update: the check and the write
// happen under one lock, so concurrent callers race exactly as they do
// against the database.
func (m *memRequests) SetStatusIf(id string, from []string, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if r.Status == f {
			r.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *memRequests) SetNotified(id string, notified []models.NotifiedTechnician) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.requests[id]; ok {
		r.Notified = notified
	}
	return nil
}

func (m *memRequests) MarkResponded(requestID, technicianID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return errNotFound
	}
	for i := range r.Notified {
		if r.Notified[i].TechnicianID == technicianID {
			r.Notified[i].Responded = true
		}
	}
	return nil
}

func (m *memRequests) OpenNear(requestRepo.OpenRequestSearchCriteria) ([]requestRepo.RequestMatch, error) {
	return nil, nil
}

func (m *memRequests) OpenWithinRadius(requestRepo.OpenRequestSearchCriteria) ([]models.ServiceRequest, error) {
	return nil, nil
}

func (m *memRequests) OpenByCategories([]string) ([]models.ServiceRequest, error) {
	return nil, nil
}

type memQuotes struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
	// flipHook runs before each SetStatusIf outside the lock, letting a
	// test interleave a competing status change at the narrowest window.
	flipHook func(to string)
}

func newMemQuotes(quotes ...*models.Quote) *memQuotes {
	m := &memQuotes{quotes: make(map[string]*models.Quote)}
	for _, q := range quotes {
		m.quotes[q.ID] = q
	}
	return m
}

func (m *memQuotes) Create(q *models.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[q.ID] = q
	return nil
}

func (m *memQuotes) GetByID(id string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, errNotFound
	}
	copied := *q
	return &copied, nil
}

func (m *memQuotes) ListByRequest(requestID string) ([]models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Quote
	for _, q := range m.quotes {
		if q.RequestID == requestID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memQuotes) ListByTechnician(technicianID string) ([]models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Quote
	for _, q := range m.quotes {
		if q.TechnicianID == technicianID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memQuotes) ActiveByRequestAndTechnician(requestID, technicianID string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.quotes {
		if q.RequestID == requestID && q.TechnicianID == technicianID && q.Active() {
			copied := *q
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memQuotes) SetStatusIf(id string, from []string, to, reason string) (bool, error) {
	if m.flipHook != nil {
		m.flipHook(to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if q.Status == f {
			q.Status = to
			if reason != "" {
				q.StatusReason = reason
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memQuotes) CascadeNotSelected(requestID, exceptID, reason string) ([]models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var touched []models.Quote
	for _, q := range m.quotes {
		if q.RequestID == requestID && q.ID != exceptID && q.Status == models.QuotePending {
			q.Status = models.QuoteNotSelected
			q.StatusReason = reason
			touched = append(touched, *q)
		}
	}
	return touched, nil
}

func (m *memQuotes) UpdateContent(id string, edit quoteRepo.QuoteEdit) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok || q.Status != models.QuotePending {
		return false, nil
	}
	q.Price = edit.Price
	q.Duration = edit.Duration
	q.Materials = edit.Materials
	q.Notes = edit.Notes
	q.EditedAt = &edit.EditedAt
	return true, nil
}

func (m *memQuotes) ExpireDue(now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, q := range m.quotes {
		if q.ExpiredAt(now) {
			q.Status = models.QuoteExpired
			count++
		}
	}
	return count, nil
}

func (m *memQuotes) ExpireDueForRequest(requestID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.quotes {
		if q.RequestID == requestID && q.ExpiredAt(now) {
			q.Status = models.QuoteExpired
		}
	}
	return nil
}

type memJobs struct {
	mu        sync.Mutex
	jobs      map[string]*models.Job
	createErr error
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*models.Job)}
}

func (m *memJobs) Create(j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.jobs {
		if existing.QuoteID == j.QuoteID {
			return errors.New("duplicate quote_id")
		}
	}
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
	j.Status = models.JobDisputed
	j.Dispute = &dispute
	j.Payment.Status = models.PaymentPartial
	j.Payment.ReleasedAmount = autoRelease
	j.History = append(j.History, entry)
	j.UpdatedAt = entry.At
	return true, nil
}
