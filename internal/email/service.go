// Package email delivers transactional mail over SMTP through a buffered
// queue, so callers never block on the mail server.
package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/finvault/FinVault/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	subjectVerificationCode = "Confirm your FinVault registration"
	subjectPasswordReset    = "Reset your FinVault password"
	subjectGoalCompleted    = "You reached a savings goal"
	subjectGoalDeadline     = "A savings goal deadline is coming up"
)

// Message is a renderable email. Each message type knows its template and
// subject line.
type Message interface {
	TemplateName() string
	Subject() string
}

type verificationCodeData struct {
	Login string
	Code  string
}

func (verificationCodeData) TemplateName() string { return "verification_code.html" }
func (verificationCodeData) Subject() string      { return subjectVerificationCode }

type passwordResetData struct {
	Login string
	Code  string
}

func (passwordResetData) TemplateName() string { return "password_reset.html" }
func (passwordResetData) Subject() string      { return subjectPasswordReset }

type goalCompletedData struct {
	Login string
	Title string
}

func (goalCompletedData) TemplateName() string { return "goal_completed.html" }
func (goalCompletedData) Subject() string      { return subjectGoalCompleted }

type goalDeadlineData struct {
	Login    string
	Title    string
	DaysLeft int
}

func (goalDeadlineData) TemplateName() string { return "goal_deadline.html" }
func (goalDeadlineData) Subject() string      { return subjectGoalDeadline }

// Config holds SMTP settings. QueueSize bounds the in-flight backlog; a full
// queue drops the message with a log line rather than blocking the caller.
type Config struct {
	From      string
	Password  string
	Host      string
	Port      string
	QueueSize int
}

type task struct {
	to      string
	message Message
}

type Service struct {
	cfg       Config
	templates *template.Template
	queue     chan task
	done      chan struct{}
	logger    *logging.Logger
}

// NewService parses the embedded templates and starts the delivery worker.
func NewService(cfg Config, logger *logging.Logger) (*Service, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing email templates: %w", err)
	}

	s := &Service{
		cfg:       cfg,
		templates: templates,
		queue:     make(chan task, cfg.QueueSize),
		done:      make(chan struct{}),
		logger:    logger.WithComponent("email"),
	}
	go s.worker()
	return s, nil
}

// Close stops the worker after draining queued messages.
func (s *Service) Close() {
	close(s.queue)
	<-s.done
}

func (s *Service) SendVerificationCode(to, login, code string) {
	s.enqueue(to, verificationCodeData{Login: login, Code: code})
}

func (s *Service) SendPasswordResetCode(to, login, code string) {
	s.enqueue(to, passwordResetData{Login: login, Code: code})
}

func (s *Service) SendGoalCompleted(to, login, title string) {
	s.enqueue(to, goalCompletedData{Login: login, Title: title})
}

func (s *Service) SendGoalDeadline(to, login, title string, daysLeft int) {
	s.enqueue(to, goalDeadlineData{Login: login, Title: title, DaysLeft: daysLeft})
}

func (s *Service) enqueue(to string, message Message) {
	select {
	case s.queue <- task{to: to, message: message}:
	default:
		s.logger.Error("email queue full, dropping message", "to", to, "subject", message.Subject())
	}
}

func (s *Service) worker() {
	defer close(s.done)
	for t := range s.queue {
		if err := s.send(t.to, t.message); err != nil {
			s.logger.Error("failed to send email", "to", t.to, "subject", t.message.Subject(), "error", err)
		}
	}
}

func (s *Service) send(to string, message Message) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, message.TemplateName(), message); err != nil {
		return fmt.Errorf("rendering %s: %w", message.TemplateName(), err)
	}

	payload := []byte("Subject: " + message.Subject() + "\r\n" +
		"MIME-version: 1.0;\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n" +
		body.String())

	auth := smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.Host)
	if err := smtp.SendMail(s.cfg.Host+":"+s.cfg.Port, auth, s.cfg.From, []string{to}, payload); err != nil {
		return fmt.Errorf("sending to %s: %w", to, err)
	}
	return nil
}
