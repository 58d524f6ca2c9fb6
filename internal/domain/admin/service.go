package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/core"
	"hrcrm/internal/domain/notifications"
	cryptoutil "hrcrm/internal/platform/crypto"
	"hrcrm/internal/platform/metrics"
)

const (
	credentialLength  = 14
	slowPingThreshold = 500 * time.Millisecond
)

type StoreAPI interface {
	CascadePreview(ctx context.Context, userID string) (CascadePreview, error)
	CascadeDelete(ctx context.Context, userID string) (CascadePreview, error)
	ActiveSuperAdmins(ctx context.Context) (int, error)
	UserRole(ctx context.Context, userID string) (string, error)
	OrphanedUsers(ctx context.Context) ([]OrphanUser, error)
	FixOrphanedUsers(ctx context.Context) ([]OrphanFix, error)
	EmployeeIDIssues(ctx context.Context) ([]core.EmployeeIDIssue, error)
	FixEmployeeIDs(ctx context.Context) ([]core.EmployeeIDIssue, error)
	Ping(ctx context.Context) error
	Counts(ctx context.Context) (Counts, error)
	ListCredentials(ctx context.Context, userID string) ([]Credential, error)
	GetCredential(ctx context.Context, id string) (Credential, error)
	IssueCredential(ctx context.Context, userID, passwordHash string, passwordEnc []byte, issuedAt, expiresAt time.Time, createdBy string) (string, error)
	RevokeCredential(ctx context.Context, id string, at time.Time) (bool, error)
}

type Service struct {
	Store         StoreAPI
	Crypto        *cryptoutil.Service
	Metrics       *metrics.Collector
	Notify        *notifications.Service
	Version       string
	CredentialTTL time.Duration
	Now           func() time.Time
}

func NewService(store StoreAPI, crypto *cryptoutil.Service, collector *metrics.Collector, notify *notifications.Service, version string, credentialTTL time.Duration) *Service {
	return &Service{
		Store:         store,
		Crypto:        crypto,
		Metrics:       collector,
		Notify:        notify,
		Version:       version,
		CredentialTTL: credentialTTL,
		Now:           time.Now,
	}
}

func (s *Service) CascadePreview(ctx context.Context, userID string) (CascadePreview, error) {
	if userID == "" {
		return CascadePreview{}, ErrUserMissing
	}
	return s.Store.CascadePreview(ctx, userID)
}

func (s *Service) CascadeDelete(ctx context.Context, actor auth.UserContext, userID string) (CascadePreview, error) {
	if userID == "" {
		return CascadePreview{}, ErrUserMissing
	}
	if userID == actor.UserID {
		return CascadePreview{}, ErrSelfDelete
	}
	role, err := s.Store.UserRole(ctx, userID)
	if err != nil {
		return CascadePreview{}, err
	}
	if role == auth.RoleSuperAdmin {
		n, err := s.Store.ActiveSuperAdmins(ctx)
		if err != nil {
			return CascadePreview{}, err
		}
		if n <= 1 {
			return CascadePreview{}, ErrLastAdmin
		}
	}
	return s.Store.CascadeDelete(ctx, userID)
}

func (s *Service) OrphanedUsers(ctx context.Context) ([]OrphanUser, error) {
	return s.Store.OrphanedUsers(ctx)
}

func (s *Service) FixOrphanedUsers(ctx context.Context) ([]OrphanFix, error) {
	return s.Store.FixOrphanedUsers(ctx)
}

func (s *Service) EmployeeIDIssues(ctx context.Context) ([]core.EmployeeIDIssue, error) {
	return s.Store.EmployeeIDIssues(ctx)
}

func (s *Service) FixEmployeeIDs(ctx context.Context) ([]core.EmployeeIDIssue, error) {
	return s.Store.FixEmployeeIDs(ctx)
}

func (s *Service) Health(ctx context.Context) Health {
	h := Health{
		Status:        HealthHealthy,
		Version:       s.Version,
		UptimeSeconds: int64(s.Metrics.Uptime().Seconds()),
		Metrics:       s.Metrics.Snapshot(),
		Issues:        []string{},
		CheckedAt:     s.Now().UTC(),
	}

	started := time.Now()
	err := s.Store.Ping(ctx)
	latency := time.Since(started)
	h.Database.LatencyMs = float64(latency.Microseconds()) / 1000
	if err != nil {
		h.Status = HealthUnhealthy
		h.Database.Error = err.Error()
		h.Issues = append(h.Issues, "database unreachable")
		return h
	}
	h.Database.Connected = true

	counts, err := s.Store.Counts(ctx)
	if err != nil {
		slog.Warn("system health counts failed", "err", err)
		h.Status = HealthDegraded
		h.Issues = append(h.Issues, "row counts unavailable")
		return h
	}
	h.Counts = counts
	h.Status, h.Issues = assess(counts, latency, h.Issues)
	return h
}

func assess(c Counts, latency time.Duration, issues []string) (string, []string) {
	if latency > slowPingThreshold {
		issues = append(issues, fmt.Sprintf("database latency %dms", latency.Milliseconds()))
	}
	if c.OrphanedUsers > 0 {
		issues = append(issues, fmt.Sprintf("%d users without employee records", c.OrphanedUsers))
	}
	if c.InvalidIDs > 0 {
		issues = append(issues, fmt.Sprintf("%d invalid employee ids", c.InvalidIDs))
	}
	if len(issues) > 0 {
		return HealthDegraded, issues
	}
	return HealthHealthy, issues
}

func (s *Service) Credentials(ctx context.Context, userID string) ([]Credential, error) {
	creds, err := s.Store.ListCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	for i := range creds {
		s.present(&creds[i], now)
	}
	return creds, nil
}

func (s *Service) Credential(ctx context.Context, id string) (Credential, error) {
	c, err := s.Store.GetCredential(ctx, id)
	if err != nil {
		return Credential{}, err
	}
	s.present(&c, s.Now())
	return c, nil
}

// present computes the status and reveals the plaintext only while the credential is active.
func (s *Service) present(c *Credential, now time.Time) {
	c.Status = CredentialStatus(c.IsUsed, c.ExpiresAt, now)
	c.Password = ""
	if c.Status == CredentialActive {
		plain, err := s.Crypto.DecryptString(c.PasswordEnc)
		if err != nil {
			slog.Warn("decrypt temporary credential failed", "credentialId", c.ID, "err", err)
		} else {
			c.Password = plain
		}
	}
	c.PasswordEnc = nil
}

func (s *Service) IssueCredential(ctx context.Context, actor auth.UserContext, userID string) (Credential, error) {
	if userID == "" {
		return Credential{}, ErrUserMissing
	}
	password, err := auth.GeneratePassword(credentialLength)
	if err != nil {
		return Credential{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Credential{}, err
	}
	sealed, err := s.Crypto.EncryptString(password)
	if err != nil {
		return Credential{}, fmt.Errorf("seal credential: %w", err)
	}
	now := s.Now()
	id, err := s.Store.IssueCredential(ctx, userID, hash, sealed, now, now.Add(s.CredentialTTL), actor.UserID)
	if err != nil {
		return Credential{}, err
	}
	s.Notify.Notify(ctx, userID, notifications.TypeCredentialIssued, "Temporary password issued",
		"An administrator issued you a temporary password. You will be asked to change it at next login.")
	return s.Credential(ctx, id)
}

func (s *Service) RevokeCredential(ctx context.Context, id string) (Credential, error) {
	ok, err := s.Store.RevokeCredential(ctx, id, s.Now())
	if err != nil {
		return Credential{}, err
	}
	if !ok {
		if _, err := s.Store.GetCredential(ctx, id); err != nil {
			return Credential{}, err
		}
	}
	return s.Credential(ctx, id)
}
