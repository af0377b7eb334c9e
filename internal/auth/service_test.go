package auth

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/database"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(dbPath, "../../migrations"))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(NewRepository(db), logger)
}

func TestHashPassword(t *testing.T) {
	h := HashPassword("patient123")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashPassword("patient123"))
	assert.NotEqual(t, h, HashPassword("patient124"))
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "jane@example.com", "secret99", "Jane", RolePatient)
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, RolePatient, u.Role)

	got, err := svc.Login(ctx, "jane@example.com", "secret99")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Login(ctx, "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "secret99")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Register_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name                       string
		email, password, user, who string
	}{
		{"missing email", "", "secret99", "Jane", RolePatient},
		{"malformed email", "not-an-email", "secret99", "Jane", RolePatient},
		{"short password", "jane@example.com", "abc", "Jane", RolePatient},
		{"missing name", "jane@example.com", "secret99", "  ", RolePatient},
		{"invalid role", "jane@example.com", "secret99", "Jane", "superuser"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, tt.password, tt.user, tt.who)
			assert.Error(t, err)
		})
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "jane@example.com", "secret99", "Jane", RolePatient)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Jane@Example.com", "other-pass", "Jane Again", RolePatient)
	assert.ErrorIs(t, err, ErrEmailTaken, "emails are case-insensitive")
}

func TestService_PatientProfile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "pat@example.com", "secret99", "Pat", RolePatient)
	require.NoError(t, err)

	// Registration creates an empty profile.
	profile, err := svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, profile.Age)

	age := 47
	require.NoError(t, svc.UpdateProfile(ctx, &PatientProfile{
		UserID:         u.ID,
		Age:            &age,
		Sex:            "Female",
		MedicalHistory: "psoriasis",
	}))

	profile, err = svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Age)
	assert.Equal(t, 47, *profile.Age)
	assert.Equal(t, "psoriasis", profile.MedicalHistory)
}

func TestService_SeedDemoUsers_Idempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedDemoUsers(ctx))
	require.NoError(t, svc.SeedDemoUsers(ctx))

	u, err := svc.Login(ctx, "clinician@rmd-health.demo", "clinician123")
	require.NoError(t, err)
	assert.Equal(t, RoleClinician, u.Role)
}
