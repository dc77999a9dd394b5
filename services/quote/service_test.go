package quote

import (
	"errors"
	"sync"
	"testing"
	"time"

	"servifix/models"
	"servifix/services/apperr"
	"servifix/services/notification"
)

func newTechnician(id, tier string, specialties ...string) *models.User {
	return &models.User{
		ID:             id,
		Role:           models.RoleTechnician,
		Specialties:    specialties,
		MembershipTier: tier,
		Rating:         4.5,
		ReviewCount:    12,
		JobsDone:       30,
	}
}

func newClient(id string) *models.User {
	return &models.User{ID: id, Role: models.RoleClient}
}

func newOpenRequest(id, clientID, category, urgency string) *models.ServiceRequest {
	return &models.ServiceRequest{
		ID:        id,
		ClientID:  clientID,
		Category:  category,
		Urgency:   urgency,
		Status:    models.RequestPending,
		CreatedAt: time.Now(),
	}
}

func newTestService(users *memUsers, requests *memRequests, quotes *memQuotes, jobs *memJobs) *DefaultQuoteService {
	return NewQuoteService(users, requests, quotes, jobs,
		notification.NewHub(notification.NewMemoryRegistry()))
}

func TestSubmitFlipsRequestToQuoted(t *testing.T) {
	users := newMemUsers(newClient("c1"), newTechnician("t1", models.TierPro, "plumbing"))
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	quotes := newMemQuotes()
	svc := newTestService(users, requests, quotes, newMemJobs())

	q, err := svc.Submit("t1", SubmitInput{
		RequestID: "r1",
		Price:     120,
		Duration:  models.EstimatedDuration{Value: 2, Unit: "hours"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if q.Status != models.QuotePending {
		t.Fatalf("status = %q, want pending", q.Status)
	}
	if q.Reputation.Rating != 4.5 || q.Reputation.JobsDone != 30 {
		t.Fatalf("reputation snapshot not taken: %+v", q.Reputation)
	}
	wantDeadline := time.Now().Add(models.DefaultQuoteValidityHours * time.Hour)
	if q.ValidUntil.Before(wantDeadline.Add(-time.Minute)) || q.ValidUntil.After(wantDeadline.Add(time.Minute)) {
		t.Fatalf("validity deadline = %v, want ~%v", q.ValidUntil, wantDeadline)
	}

	r, _ := requests.GetByID("r1")
	if r.Status != models.RequestQuoted {
		t.Fatalf("request status = %q, want quoted", r.Status)
	}
}

func TestSubmitDuplicateActiveQuote(t *testing.T) {
	users := newMemUsers(newTechnician("t1", models.TierBasic, "plumbing"))
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	svc := newTestService(users, requests, newMemQuotes(), newMemJobs())

	input := SubmitInput{RequestID: "r1", Price: 100, Duration: models.EstimatedDuration{Value: 1, Unit: "hours"}}
	if _, err := svc.Submit("t1", input); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := svc.Submit("t1", input)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestSubmitWithoutSpecialty(t *testing.T) {
	users := newMemUsers(newTechnician("t1", models.TierBasic, "electrical"))
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	svc := newTestService(users, requests, newMemQuotes(), newMemJobs())

	_, err := svc.Submit("t1", SubmitInput{RequestID: "r1", Price: 100, Duration: models.EstimatedDuration{Value: 1, Unit: "hours"}})
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSubmitOnSettledRequest(t *testing.T) {
	request := newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal)
	request.Status = models.RequestAccepted
	users := newMemUsers(newTechnician("t1", models.TierBasic, "plumbing"))
	svc := newTestService(users, newMemRequests(request), newMemQuotes(), newMemJobs())

	_, err := svc.Submit("t1", SubmitInput{RequestID: "r1", Price: 100, Duration: models.EstimatedDuration{Value: 1, Unit: "hours"}})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAcceptSettlesRequestAndCascadesRivals(t *testing.T) {
	users := newMemUsers(
		newClient("c1"),
		newTechnician("t1", models.TierPremium, "plumbing"),
		newTechnician("t2", models.TierBasic, "plumbing"),
	)
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyEmergency))
	quotes := newMemQuotes()
	jobs := newMemJobs()
	svc := newTestService(users, requests, quotes, jobs)

	input := SubmitInput{RequestID: "r1", Price: 100, Duration: models.EstimatedDuration{Value: 2, Unit: "hours"}}
	winner, err := svc.Submit("t1", input)
	if err != nil {
		t.Fatalf("submit winner: %v", err)
	}
	rival, err := svc.Submit("t2", input)
	if err != nil {
		t.Fatalf("submit rival: %v", err)
	}

	job, err := svc.Accept("c1", winner.ID, AcceptOptions{WithGuarantee: true})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Emergency doubles the price and pins commission at the urgent rate.
	if job.Payment.Amount != 200 || job.Payment.Commission != 40 || job.Payment.NetToTechnician != 160 {
		t.Fatalf("escrow breakdown = %+v", job.Payment)
	}
	if job.Payment.Status != models.PaymentRetained {
		t.Fatalf("payment status = %q, want retained for guarantee", job.Payment.Status)
	}
	if job.Status != models.JobScheduled || len(job.History) != 1 {
		t.Fatalf("job = %+v", job)
	}

	r, _ := requests.GetByID("r1")
	if r.Status != models.RequestAccepted {
		t.Fatalf("request status = %q, want accepted", r.Status)
	}
	w, _ := quotes.GetByID(winner.ID)
	if w.Status != models.QuoteAccepted {
		t.Fatalf("winner status = %q, want accepted", w.Status)
	}
	l, _ := quotes.GetByID(rival.ID)
	if l.Status != models.QuoteNotSelected || l.StatusReason != NotSelectedReason {
		t.Fatalf("rival = %+v", l)
	}
}

func TestAcceptByNonOwner(t *testing.T) {
	users := newMemUsers(newClient("c1"), newTechnician("t1", models.TierBasic, "plumbing"))
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	svc := newTestService(users, requests, newMemQuotes(), newMemJobs())

	q, err := svc.Submit("t1", SubmitInput{RequestID: "r1", Price: 100, Duration: models.EstimatedDuration{Value: 1, Unit: "hours"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err = svc.Accept("stranger", q.ID, AcceptOptions{})
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAcceptExpiredQuote(t *testing.T) {
	users := newMemUsers(newClient("c1"), newTechnician("t1", models.TierBasic, "plumbing"))
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	quotes := newMemQuotes(&models.Quote{
		ID:           "q1",
		RequestID:    "r1",
		TechnicianID: "t1",
		Price:        100,
		Status:       models.QuotePending,
		ValidUntil:   time.Now().Add(-time.Hour),
	})
	svc := newTestService(users, requests, quotes, newMemJobs())

	_, err := svc.Accept("c1", "q1", AcceptOptions{})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	q, _ := quotes.GetByID("q1")
	if q.Status != models.QuoteExpired {
		t.Fatalf("quote status = %q, want expired after sweep", q.Status)
	}
}

// Two clients-side accepts racing on the same request: exactly one wins
// and exactly one job exists afterwards. Run with -race.
func TestDoubleAcceptRace(t *testing.T) {
	users := newMemUsers(
		newClient("c1"),
		newTechnician("t1", models.TierBasic, "plumbing"),
		newTechnician("t2", models.TierBasic, "plumbing"),
	)
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	quotes := newMemQuotes()
	jobs := newMemJobs()
	svc := newTestService(users, requests, quotes, jobs)

	input := SubmitInput{RequestID: "r1", Price: 100, Duration: models.EstimatedDuration{Value: 1, Unit: "hours"}}
	qa, err := svc.Submit("t1", input)
	if err != nil {
		t.Fatalf("submit a: %v", err)
	}
	qb, err := svc.Submit("t2", input)
	if err != nil {
		t.Fatalf("submit b: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, id := range []string{qa.ID, qb.ID} {
		wg.Add(1)
		go func(i int, quoteID string) {
			defer wg.Done()
			_, results[i] = svc.Accept("c1", quoteID, AcceptOptions{})
		}(i, id)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case apperr.IsKind(err, apperr.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins = %d, conflicts = %d, want exactly one of each", wins, conflicts)
	}

	created, _ := jobs.ListByClient("c1")
	if len(created) != 1 {
		t.Fatalf("jobs created = %d, want 1", len(created))
	}

	var accepted int
	all, _ := quotes.ListByRequest("r1")
	for _, q := range all {
		if q.Status == models.QuoteAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted quotes = %d, want 1", accepted)
	}
}

// A cancel that lands between the request settlement and the quote flip
// must not leave the request accepted with no job behind it.
func TestAcceptReopensRequestWhenQuoteFlipLoses(t *testing.T) {
	users := newMemUsers(
		newClient("c1"),
		newTechnician("t1", models.TierBasic, "plumbing"),
		newTechnician("t2", models.TierBasic, "plumbing"),
	)
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	quotes := newMemQuotes()
	jobs := newMemJobs()
	svc := newTestService(users, requests, quotes, jobs)

	input := SubmitInput{RequestID: "r1", Price: 100, Duration: models.EstimatedDuration{Value: 1, Unit: "hours"}}
	q1, err := svc.Submit("t1", input)
	if err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	q2, err := svc.Submit("t2", input)
	if err != nil {
		t.Fatalf("submit q2: %v", err)
	}

	quotes.flipHook = func(to string) {
		if to != models.QuoteAccepted {
			return
		}
		quotes.flipHook = nil
		if err := svc.Cancel("t1", q1.ID); err != nil {
			t.Errorf("interleaved cancel: %v", err)
		}
	}

	if _, err := svc.Accept("c1", q1.ID, AcceptOptions{}); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	r, _ := requests.GetByID("r1")
	if r.Status != models.RequestQuoted {
		t.Fatalf("request status = %q, want quoted after rollback", r.Status)
	}
	if created, _ := jobs.ListByClient("c1"); len(created) != 0 {
		t.Fatalf("jobs created = %d, want 0", len(created))
	}

	// The surviving quote stays acceptable.
	if _, err := svc.Accept("c1", q2.ID, AcceptOptions{}); err != nil {
		t.Fatalf("accept surviving quote: %v", err)
	}
}

func TestAcceptRollsBackWhenJobCreateFails(t *testing.T) {
	users := newMemUsers(newClient("c1"), newTechnician("t1", models.TierBasic, "plumbing"))
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	quotes := newMemQuotes()
	jobs := newMemJobs()
	jobs.createErr = errors.New("write failed")
	svc := newTestService(users, requests, quotes, jobs)

	q, err := svc.Submit("t1", SubmitInput{RequestID: "r1", Price: 100, Duration: models.EstimatedDuration{Value: 1, Unit: "hours"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Accept("c1", q.ID, AcceptOptions{}); !apperr.IsKind(err, apperr.KindInfra) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}

	r, _ := requests.GetByID("r1")
	if r.Status != models.RequestQuoted {
		t.Fatalf("request status = %q, want quoted after rollback", r.Status)
	}
	got, _ := quotes.GetByID(q.ID)
	if got.Status != models.QuotePending {
		t.Fatalf("quote status = %q, want pending after rollback", got.Status)
	}

	// Once the store recovers the same quote goes through.
	jobs.createErr = nil
	if _, err := svc.Accept("c1", q.ID, AcceptOptions{}); err != nil {
		t.Fatalf("accept after recovery: %v", err)
	}
}

func TestListForRequestPopulatesTechnicians(t *testing.T) {
	users := newMemUsers(newClient("c1"), newTechnician("t1", models.TierPro, "plumbing"))
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	quotes := newMemQuotes(&models.Quote{
		ID:           "orphan",
		RequestID:    "r1",
		TechnicianID: "ghost",
		Price:        80,
		Status:       models.QuotePending,
		ValidUntil:   time.Now().Add(time.Hour),
	})
	svc := newTestService(users, requests, quotes, newMemJobs())

	if _, err := svc.Submit("t1", SubmitInput{RequestID: "r1", Price: 100, Duration: models.EstimatedDuration{Value: 1, Unit: "hours"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	listed, err := svc.ListForRequest("c1", "r1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d quotes, want 2", len(listed))
	}
	for _, d := range listed {
		switch d.TechnicianID {
		case "t1":
			if !d.Technician.Populated() || d.Technician.Full.MembershipTier != models.TierPro {
				t.Fatalf("t1 profile not populated: %+v", d.Technician)
			}
		case "ghost":
			if d.Technician.Populated() || d.Technician.ID != "ghost" {
				t.Fatalf("missing technician should stay a bare ID: %+v", d.Technician)
			}
		default:
			t.Fatalf("unexpected technician %q", d.TechnicianID)
		}
	}
}

func TestRejectAndCancel(t *testing.T) {
	users := newMemUsers(newClient("c1"), newTechnician("t1", models.TierBasic, "plumbing"), newTechnician("t2", models.TierBasic, "plumbing"))
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	quotes := newMemQuotes()
	svc := newTestService(users, requests, quotes, newMemJobs())

	input := SubmitInput{RequestID: "r1", Price: 100, Duration: models.EstimatedDuration{Value: 1, Unit: "hours"}}
	q1, _ := svc.Submit("t1", input)
	q2, _ := svc.Submit("t2", input)

	if err := svc.Reject("t1", q1.ID); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("reject by non-owner: %v", err)
	}
	if err := svc.Reject("c1", q1.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got, _ := quotes.GetByID(q1.ID); got.Status != models.QuoteRejected {
		t.Fatalf("status = %q, want rejected", got.Status)
	}
	// Rejected quotes can't be rejected again.
	if err := svc.Reject("c1", q1.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("double reject: %v", err)
	}

	if err := svc.Cancel("t1", q2.ID); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("cancel by other technician: %v", err)
	}
	if err := svc.Cancel("t2", q2.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got, _ := quotes.GetByID(q2.ID); got.Status != models.QuoteCancelled {
		t.Fatalf("status = %q, want cancelled", got.Status)
	}
}

func TestEditPendingOnly(t *testing.T) {
	users := newMemUsers(newClient("c1"), newTechnician("t1", models.TierBasic, "plumbing"))
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	quotes := newMemQuotes()
	svc := newTestService(users, requests, quotes, newMemJobs())

	q, _ := svc.Submit("t1", SubmitInput{RequestID: "r1", Price: 100, Duration: models.EstimatedDuration{Value: 1, Unit: "hours"}})

	edited, err := svc.Edit("t1", q.ID, EditInput{Price: 90, Duration: models.EstimatedDuration{Value: 1.5, Unit: "hours"}})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Price != 90 || edited.EditedAt == nil {
		t.Fatalf("edited = %+v", edited)
	}

	if err := svc.Cancel("t1", q.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = svc.Edit("t1", q.ID, EditInput{Price: 80, Duration: models.EstimatedDuration{Value: 1, Unit: "hours"}})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("edit after cancel: %v", err)
	}
}

func TestExpireSweepHidesStaleQuotes(t *testing.T) {
	users := newMemUsers(newClient("c1"))
	requests := newMemRequests(newOpenRequest("r1", "c1", "plumbing", models.UrgencyNormal))
	quotes := newMemQuotes(
		&models.Quote{ID: "stale", RequestID: "r1", TechnicianID: "t1", Status: models.QuotePending, ValidUntil: time.Now().Add(-time.Minute)},
		&models.Quote{ID: "live", RequestID: "r1", TechnicianID: "t2", Status: models.QuotePending, ValidUntil: time.Now().Add(time.Hour)},
	)
	svc := newTestService(users, requests, quotes, newMemJobs())

	swept, err := svc.ExpireSweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	listed, err := svc.ListForRequest("c1", "r1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, q := range listed {
		if q.ID == "stale" && q.Status != models.QuoteExpired {
			t.Fatalf("stale quote status = %q, want expired", q.Status)
		}
		if q.ID == "live" && q.Status != models.QuotePending {
			t.Fatalf("live quote status = %q, want pending", q.Status)
		}
	}
}
