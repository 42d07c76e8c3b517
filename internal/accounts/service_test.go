package accounts

import (
	"context"
	"errors"
	"testing"

	"outreach_backend/internal/mailer"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

type memRepo struct {
	accounts map[int64]*Account
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: make(map[int64]*Account)}
}

func (m *memRepo) Create(ctx context.Context, acc *Account) error {
	m.nextID++
	acc.ID = m.nextID
	stored := *acc
	m.accounts[acc.ID] = &stored
	return nil
}

func (m *memRepo) Update(ctx context.Context, acc *Account) error {
	if _, ok := m.accounts[acc.ID]; !ok {
		return apperr.NotFound("email account not found")
	}
	stored := *acc
	m.accounts[acc.ID] = &stored
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.accounts[id]; !ok {
		return apperr.NotFound("email account not found")
	}
	delete(m.accounts, id)
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id int64) (*Account, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return nil, apperr.NotFound("email account not found")
	}
	copy := *acc
	return &copy, nil
}

func (m *memRepo) List(ctx context.Context) ([]Account, error) {
	var out []Account
	for _, acc := range m.accounts {
		out = append(out, *acc)
	}
	return out, nil
}

func (m *memRepo) ListActive(ctx context.Context) ([]Account, error) {
	var out []Account
	for _, acc := range m.accounts {
		if acc.IsActive {
			out = append(out, *acc)
		}
	}
	return out, nil
}

func (m *memRepo) NextSendingAccount(ctx context.Context) (*Account, error) {
	var best *Account
	for _, acc := range m.accounts {
		if !acc.IsActive {
			continue
		}
		if best == nil || acc.SentToday < best.SentToday ||
			(acc.SentToday == best.SentToday && acc.ID < best.ID) {
			best = acc
		}
	}
	if best == nil {
		return nil, nil
	}
	copy := *best
	return &copy, nil
}

func (m *memRepo) ResetAllSentToday(ctx context.Context) error {
	for _, acc := range m.accounts {
		acc.SentToday = 0
	}
	return nil
}

type stubProber struct {
	smtpErr error
	imapErr error
}

func (p *stubProber) ProbeSMTP(ctx context.Context, account mailer.Account) error { return p.smtpErr }
func (p *stubProber) ProbeIMAP(ctx context.Context, account mailer.Account) error { return p.imapErr }

func validInput(email string) CreateInput {
	return CreateInput{
		Label:    "Primary",
		Email:    email,
		Password: "app-password",
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		IMAPHost: "imap.example.com",
		IMAPPort: 993,
	}
}

func TestCreateDefaultsToActive(t *testing.T) {
	svc := NewService(newMemRepo(), &stubProber{}, logger.New("production"))

	acc, err := svc.Create(context.Background(), validInput("a@example.com"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !acc.IsActive {
		t.Fatal("new accounts default to active")
	}

	inactive := false
	in := validInput("b@example.com")
	in.IsActive = &inactive
	acc, err = svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if acc.IsActive {
		t.Fatal("explicit is_active=false must be honored")
	}
}

func TestUpdateKeepsPasswordWhenEmpty(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &stubProber{}, logger.New("production"))
	acc, err := svc.Create(context.Background(), validInput("a@example.com"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	empty := ""
	label := "Renamed"
	updated, err := svc.Update(context.Background(), acc.ID, UpdateInput{Label: &label, Password: &empty})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Label != "Renamed" {
		t.Errorf("label = %q", updated.Label)
	}
	if updated.Password != "app-password" {
		t.Error("empty password must keep the stored credential")
	}

	newSecret := "rotated"
	updated, err = svc.Update(context.Background(), acc.ID, UpdateInput{Password: &newSecret})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Password != "rotated" {
		t.Error("non-empty password must replace the stored credential")
	}
}

func TestUpdateMissingAccount(t *testing.T) {
	svc := NewService(newMemRepo(), &stubProber{}, logger.New("production"))
	_, err := svc.Update(context.Background(), 99, UpdateInput{})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestTestConnectionReportsProbeFailures(t *testing.T) {
	repo := newMemRepo()
	prober := &stubProber{imapErr: errors.New("imap: authentication failed")}
	svc := NewService(repo, prober, logger.New("production"))
	acc, err := svc.Create(context.Background(), validInput("a@example.com"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	report, err := svc.TestConnection(context.Background(), acc.ID)
	if err != nil {
		t.Fatalf("TestConnection must not error on probe failure: %v", err)
	}
	if !report.SMTPOK || report.SMTPError != "" {
		t.Errorf("smtp report = %+v", report)
	}
	if report.IMAPOK || report.IMAPError != "imap: authentication failed" {
		t.Errorf("imap report = %+v", report)
	}
}

func TestNextSenderPicksLeastLoaded(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &stubProber{}, logger.New("production"))
	ctx := context.Background()

	for i, sent := range []int{5, 2, 9} {
		in := validInput(string(rune('a'+i)) + "@example.com")
		acc, err := svc.Create(ctx, in)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		repo.accounts[acc.ID].SentToday = sent
	}

	acc, err := svc.NextSender(ctx)
	if err != nil {
		t.Fatalf("NextSender: %v", err)
	}
	if acc.SentToday != 2 {
		t.Fatalf("picked account with sent_today=%d, want the least loaded", acc.SentToday)
	}
}

func TestNextSenderNoActiveAccounts(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &stubProber{}, logger.New("production"))
	ctx := context.Background()

	inactive := false
	in := validInput("a@example.com")
	in.IsActive = &inactive
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := svc.NextSender(ctx)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("error = %v, want conflict when no account is active", err)
	}
}
