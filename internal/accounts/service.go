package accounts

import (
	"context"

	"outreach_backend/internal/mailer"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

// Prober verifies that a mailbox's SMTP and IMAP endpoints accept the
// configured credentials.
type Prober interface {
	ProbeSMTP(ctx context.Context, account mailer.Account) error
	ProbeIMAP(ctx context.Context, account mailer.Account) error
}

// Service wraps the repository with validation and connection testing.
type Service struct {
	repo   Repository
	prober Prober
	logger *logger.Logger
}

func NewService(repo Repository, prober Prober, log *logger.Logger) *Service {
	return &Service{repo: repo, prober: prober, logger: log}
}

// CreateInput carries the operator-provided account fields.
type CreateInput struct {
	Label    string `json:"label" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	SMTPHost string `json:"smtp_host" validate:"required,hostname"`
	SMTPPort int    `json:"smtp_port" validate:"required,min=1,max=65535"`
	IMAPHost string `json:"imap_host" validate:"required,hostname"`
	IMAPPort int    `json:"imap_port" validate:"required,min=1,max=65535"`
	IsActive *bool  `json:"is_active"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Account, error) {
	acc := &Account{
		Label:    in.Label,
		Email:    in.Email,
		Password: in.Password,
		SMTPHost: in.SMTPHost,
		SMTPPort: in.SMTPPort,
		IMAPHost: in.IMAPHost,
		IMAPPort: in.IMAPPort,
		IsActive: true,
	}
	if in.IsActive != nil {
		acc.IsActive = *in.IsActive
	}
	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, err
	}
	s.logger.Info("email account created", "account_id", acc.ID, "label", acc.Label)
	return acc, nil
}

// UpdateInput carries a partial account update. Nil fields are unchanged;
// an empty password keeps the stored one.
type UpdateInput struct {
	Label    *string `json:"label" validate:"omitempty,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password"`
	SMTPHost *string `json:"smtp_host" validate:"omitempty,hostname"`
	SMTPPort *int    `json:"smtp_port" validate:"omitempty,min=1,max=65535"`
	IMAPHost *string `json:"imap_host" validate:"omitempty,hostname"`
	IMAPPort *int    `json:"imap_port" validate:"omitempty,min=1,max=65535"`
	IsActive *bool   `json:"is_active"`
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Account, error) {
	acc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Label != nil {
		acc.Label = *in.Label
	}
	if in.Email != nil {
		acc.Email = *in.Email
	}
	if in.Password != nil && *in.Password != "" {
		acc.Password = *in.Password
	}
	if in.SMTPHost != nil {
		acc.SMTPHost = *in.SMTPHost
	}
	if in.SMTPPort != nil {
		acc.SMTPPort = *in.SMTPPort
	}
	if in.IMAPHost != nil {
		acc.IMAPHost = *in.IMAPHost
	}
	if in.IMAPPort != nil {
		acc.IMAPPort = *in.IMAPPort
	}
	if in.IsActive != nil {
		acc.IsActive = *in.IsActive
	}

	if err := s.repo.Update(ctx, acc); err != nil {
		return nil, err
	}
	s.logger.Info("email account updated", "account_id", acc.ID)
	return acc, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("email account deleted", "account_id", id)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// ConnectionReport is the outcome of probing one account's endpoints.
type ConnectionReport struct {
	SMTPOK    bool   `json:"smtp_ok"`
	IMAPOK    bool   `json:"imap_ok"`
	SMTPError string `json:"smtp_error,omitempty"`
	IMAPError string `json:"imap_error,omitempty"`
}

// TestConnection probes both endpoints of a stored account. Probe failures
// are reported, not returned as errors; only a missing account errors.
func (s *Service) TestConnection(ctx context.Context, id int64) (*ConnectionReport, error) {
	acc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var report ConnectionReport
	mailbox := acc.Mailbox()

	if err := s.prober.ProbeSMTP(ctx, mailbox); err != nil {
		report.SMTPError = err.Error()
	} else {
		report.SMTPOK = true
	}
	if err := s.prober.ProbeIMAP(ctx, mailbox); err != nil {
		report.IMAPError = err.Error()
	} else {
		report.IMAPOK = true
	}

	s.logger.Info("account connection test",
		"account_id", id, "smtp_ok", report.SMTPOK, "imap_ok", report.IMAPOK)
	return &report, nil
}

// NextSender picks the least-loaded active account for the next send.
func (s *Service) NextSender(ctx context.Context) (*Account, error) {
	acc, err := s.repo.NextSendingAccount(ctx)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, apperr.New(apperr.KindConflict, "no active email accounts configured")
	}
	return acc, nil
}
