// Package mail holds the Mailer collaborator. Delivery, templating and
// retry live behind the interface; the engine only hands messages over.
package mail

import "go.uber.org/zap"

// Mailer sends one transactional email.
type Mailer interface {
	Send(to, subject, body string) error
}

// LogMailer is the default Mailer: it records the message instead of
// delivering it. Real delivery is a deployment concern wired in main.
type LogMailer struct{}

func NewLogMailer() *LogMailer { return &LogMailer{} }

func (m *LogMailer) Send(to, subject, body string) error {
	zap.L().Info("mail queued",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}
