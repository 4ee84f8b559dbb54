package service

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"planfusion/internal/email"
	"planfusion/internal/repository"
)

// DashboardReader expone las estadisticas agregadas de un usuario.
type DashboardReader interface {
	Dashboard(ctx context.Context, email string) (DashboardStats, error)
}

// Digest es el resumen renderizado listo para enviar.
type Digest struct {
	Email   string
	Subject string
	HTML    string
	Stats   DashboardStats
}

// DigestSummary resume una corrida de envios.
type DigestSummary struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

var digestTemplate = template.Must(template.New("digest").Parse(`<html>
<body>
<h2>{{.Greeting}}</h2>
<p>You have {{.Stats.NotificationCount}} items that need your attention.</p>
<h3>Pending Tasks ({{.Stats.Tasks.Pending}})</h3>
<ul>{{range .Stats.Tasks.PendingTasks}}
<li>{{.Name}}{{if .Priority}} ({{.Priority}}){{end}}{{if .DueDate}} - due {{.DueDate}}{{end}}</li>{{else}}
<li>No pending tasks.</li>{{end}}
</ul>
<h3>Skills In Progress ({{.Stats.Skills.InProgress}})</h3>
<ul>{{range .Stats.Skills.InProgressSkills}}
<li>{{.Name}}: {{.Completed}}%</li>{{else}}
<li>No skills in progress.</li>{{end}}
</ul>
<h3>Active Goals</h3>
<ul>{{range .Stats.Goals.ActiveGoals}}
<li>{{.Description}} ({{.Completed}}/{{.Target}})</li>{{else}}
<li>No active goals.</li>{{end}}
</ul>
<h3>Upcoming Meetings</h3>
<ul>{{range .Stats.Contacts.UpcomingMeetings}}
<li>{{.Name}} - {{.At.Format "2006-01-02 15:04"}}</li>{{else}}
<li>No upcoming meetings.</li>{{end}}
</ul>
<p>Keep up the great work!<br>The PlanFusion Team</p>
</body>
</html>
`))

type DigestService struct {
	logger      *zap.Logger
	accounts    repository.AccountRepository
	dashboard   DashboardReader
	emailSender email.Sender
	sendTimeout time.Duration
	now         func() time.Time
}

func NewDigestService(logger *zap.Logger, accounts repository.AccountRepository, dashboard DashboardReader, emailSender email.Sender, sendTimeout time.Duration) *DigestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DigestService{
		logger:      logger,
		accounts:    accounts,
		dashboard:   dashboard,
		emailSender: emailSender,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

func digestSubject(now time.Time) string {
	if now.Hour() < 12 {
		return "Morning Update from PlanFusion"
	}
	return "Evening Update from PlanFusion"
}

// RenderDigest respeta el opt-out de email_notifications y daily_task_reminders.
func (s *DigestService) RenderDigest(ctx context.Context, emailAddr string) (Digest, error) {
	emailAddr = normalizeEmail(emailAddr)
	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Digest{}, ErrUnknownAccount
		}
		return Digest{}, storageError("get account", err)
	}
	if !account.Preferences.DigestEnabled() {
		return Digest{}, ErrNotificationsDisabled
	}

	stats, err := s.dashboard.Dashboard(ctx, emailAddr)
	if err != nil {
		return Digest{}, err
	}
	now := s.now()
	subject := digestSubject(now)

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, struct {
		Greeting string
		Stats    DashboardStats
	}{Greeting: subject, Stats: stats}); err != nil {
		return Digest{}, err
	}
	return Digest{Email: emailAddr, Subject: subject, HTML: buf.String(), Stats: stats}, nil
}

func (s *DigestService) SendDigest(ctx context.Context, emailAddr string) error {
	digest, err := s.RenderDigest(ctx, emailAddr)
	if err != nil {
		return err
	}
	msg := email.Message{To: digest.Email, Subject: digest.Subject, Body: digest.HTML, HTML: true}
	return dispatchEmail(ctx, s.emailSender, s.sendTimeout, msg)
}

func (s *DigestService) Recipients(ctx context.Context) ([]string, error) {
	emails, err := s.accounts.ListEmails(ctx)
	if err != nil {
		return nil, storageError("list accounts", err)
	}
	return emails, nil
}

// SendAll envia el digest a cada cuenta; los fallos individuales no cortan la corrida.
func (s *DigestService) SendAll(ctx context.Context) (DigestSummary, error) {
	emails, err := s.Recipients(ctx)
	if err != nil {
		return DigestSummary{}, err
	}
	var summary DigestSummary
	for _, addr := range emails {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		switch err := s.SendDigest(ctx, addr); {
		case err == nil:
			summary.Sent++
		case errors.Is(err, ErrNotificationsDisabled):
			summary.Skipped++
		default:
			summary.Failed++
			s.logger.Error("digest failed", zap.Error(err), zap.String("email", addr))
		}
	}
	return summary, nil
}
