package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

type Service interface {
	Register(ctx context.Context, email, password, name, role string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	GetProfile(ctx context.Context, userID int64) (*PatientProfile, error)
	UpdateProfile(ctx context.Context, p *PatientProfile) error
	SeedDemoUsers(ctx context.Context) error
}

type service struct {
	repo   Repository
	logger *logrus.Logger
}

func NewService(repo Repository, logger *logrus.Logger) Service {
	return &service{repo: repo, logger: logger}
}

// HashPassword is a plain SHA-256 digest. Demo accounts only; a deployed
// system would use a KDF.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (s *service) Register(ctx context.Context, email, password, name, role string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address")
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if role == "" {
		role = RolePatient
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	u := &User{
		Email:        email,
		PasswordHash: HashPassword(password),
		Name:         strings.TrimSpace(name),
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered")
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	expected := []byte(u.PasswordHash)
	actual := []byte(HashPassword(password))
	if subtle.ConstantTimeCompare(expected, actual) != 1 {
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.TouchLastLogin(ctx, u.ID); err != nil {
		s.logger.WithError(err).Warn("failed to update last login")
	}
	return u, nil
}

func (s *service) GetProfile(ctx context.Context, userID int64) (*PatientProfile, error) {
	return s.repo.GetProfile(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, p *PatientProfile) error {
	return s.repo.UpsertProfile(ctx, p)
}

// SeedDemoUsers creates the fixed demo accounts. All data is fictional;
// existing accounts are left alone.
func (s *service) SeedDemoUsers(ctx context.Context) error {
	demoUsers := []struct {
		email, password, name, role string
	}{
		{"auditor@rmd-health.demo", "admin123", "Demo Auditor", RoleAuditor},
		{"clinician@rmd-health.demo", "clinician123", "Dr. Demo", RoleClinician},
		{"patient1@rmd-health.demo", "patient123", "Demo Patient 1", RolePatient},
		{"patient2@rmd-health.demo", "patient123", "Demo Patient 2", RolePatient},
	}
	for _, d := range demoUsers {
		_, err := s.Register(ctx, d.email, d.password, d.name, d.role)
		if err != nil && !errors.Is(err, ErrEmailTaken) {
			return fmt.Errorf("failed to seed demo user %s: %w", d.email, err)
		}
	}
	return nil
}
