package handlers

import (
	userRepoPkg "servifix/database/repository/user"
	"servifix/services/job"
	"servifix/services/loyalty"
	"servifix/services/notification"
	"servifix/services/quote"
	"servifix/services/request"
)

// HandlerBundle groups the endpoint handlers and their service
// dependencies into one struct wired in main.
type HandlerBundle struct {
	Requests request.RequestService
	Quotes   quote.QuoteService
	Jobs     job.JobService
	Loyalty  loyalty.LoyaltyService
	Users    userRepoPkg.UserRepository
	Hub      *notification.Hub
}

func NewHandlerBundle(
	requests request.RequestService,
	quotes quote.QuoteService,
	jobs job.JobService,
	loyaltySvc loyalty.LoyaltyService,
	users userRepoPkg.UserRepository,
	hub *notification.Hub,
) *HandlerBundle {
	return &HandlerBundle{
		Requests: requests,
		Quotes:   quotes,
		Jobs:     jobs,
		Loyalty:  loyaltySvc,
		Users:    users,
		Hub:      hub,
	}
}
