package notification

import (
	"fmt"
	"time"

	"servifix/models"
)

func newEvent(eventType, title, message string, payload map[string]interface{}) models.NotificationEvent {
	return models.NotificationEvent{
		Type:      eventType,
		Title:     title,
		Message:   message,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// NewRequestEvent invites a matched technician to quote on a request.
func NewRequestEvent(request *models.ServiceRequest, distanceKm float64) models.NotificationEvent {
	message := fmt.Sprintf("A %s request was posted near you", request.Category)
	if request.IsEmergency() {
		message = fmt.Sprintf("An emergency %s request needs a technician now", request.Category)
	}
	return newEvent(models.EventNewRequest,
		"New request in your area",
		message,
		map[string]interface{}{
			"request_id":  request.ID,
			"category":    request.Category,
			"urgency":     request.Urgency,
			"distance_km": distanceKm,
		})
}

// NewQuoteEvent tells a client a technician quoted their request.
func NewQuoteEvent(quote *models.Quote) models.NotificationEvent {
	return newEvent(models.EventNewQuote,
		"New quote received",
		fmt.Sprintf("A technician quoted $%.2f on your request", quote.Price),
		map[string]interface{}{"quote_id": quote.ID, "request_id": quote.RequestID})
}

// QuoteAcceptedEvent tells the winning technician their quote was accepted.
func QuoteAcceptedEvent(quote *models.Quote, jobID string) models.NotificationEvent {
	return newEvent(models.EventQuoteAccepted,
		"Quote accepted",
		"Your quote was accepted and a job has been created",
		map[string]interface{}{"quote_id": quote.ID, "request_id": quote.RequestID, "job_id": jobID})
}

// QuoteNotSelectedEvent tells a rival technician the client went elsewhere.
func QuoteNotSelectedEvent(quote *models.Quote) models.NotificationEvent {
	return newEvent(models.EventQuoteNotSelected,
		"Quote not selected",
		quote.StatusReason,
		map[string]interface{}{"quote_id": quote.ID, "request_id": quote.RequestID})
}

// QuoteEditedEvent tells the client a pending quote changed.
func QuoteEditedEvent(quote *models.Quote) models.NotificationEvent {
	return newEvent(models.EventQuoteEdited,
		"Quote updated",
		fmt.Sprintf("A technician revised their quote to $%.2f", quote.Price),
		map[string]interface{}{"quote_id": quote.ID, "request_id": quote.RequestID})
}

// QuoteCancelledEvent tells the client a technician withdrew.
func QuoteCancelledEvent(quote *models.Quote) models.NotificationEvent {
	return newEvent(models.EventQuoteCancelled,
		"Quote withdrawn",
		"A technician withdrew their quote",
		map[string]interface{}{"quote_id": quote.ID, "request_id": quote.RequestID})
}

// JobStatusEvent announces a state-machine move to the job group.
func JobStatusEvent(job *models.Job, note string) models.NotificationEvent {
	return newEvent(models.EventJobStatusChanged,
		"Job status changed",
		fmt.Sprintf("Job is now %s", job.Status),
		map[string]interface{}{"job_id": job.ID, "status": job.Status, "note": note})
}

// FundsReleasedEvent tells the technician escrow was released.
func FundsReleasedEvent(job *models.Job) models.NotificationEvent {
	return newEvent(models.EventFundsReleased,
		"Funds released",
		fmt.Sprintf("$%.2f has been credited to your balance", job.Payment.NetToTechnician),
		map[string]interface{}{"job_id": job.ID, "amount": job.Payment.NetToTechnician})
}

// PointsEarnedEvent tells the client how many points the approval earned.
func PointsEarnedEvent(job *models.Job, points int) models.NotificationEvent {
	return newEvent(models.EventPointsEarned,
		"Points earned",
		fmt.Sprintf("You earned %d loyalty points", points),
		map[string]interface{}{"job_id": job.ID, "points": points})
}

// ChatEvent wraps an inbound chat frame for delivery. Chat, typing and
// location frames share this path and none of them are persisted.
func ChatEvent(msg *models.ChatMessage) models.NotificationEvent {
	eventType := models.EventChatMessage
	switch msg.Kind {
	case models.EventTyping:
		eventType = models.EventTyping
	case models.EventTechnicianLocation:
		eventType = models.EventTechnicianLocation
	}
	payload := map[string]interface{}{
		"sender_id": msg.SenderID,
		"job_id":    msg.JobID,
		"text":      msg.Text,
	}
	if msg.Location != nil {
		payload["location"] = msg.Location
	}
	return newEvent(eventType, "", "", payload)
}
