package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = errors.New("email already registered")

type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	TouchLastLogin(ctx context.Context, userID int64) error
	GetProfile(ctx context.Context, userID int64) (*PatientProfile, error)
	UpsertProfile(ctx context.Context, p *PatientProfile) error
}

type sqliteRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &sqliteRepo{db: db}
}

func (r *sqliteRepo) CreateUser(ctx context.Context, u *User) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name, role) VALUES (?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.Name, u.Role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	u.CreatedAt = time.Now()

	// Patients get an empty profile row to fill in later.
	if u.Role == RolePatient {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO patient_profiles (user_id) VALUES (?)`, u.ID); err != nil {
			return fmt.Errorf("failed to create patient profile: %w", err)
		}
	}
	return nil
}

func (r *sqliteRepo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var (
		u         User
		lastLogin sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, role, created_at, last_login
		 FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

func (r *sqliteRepo) TouchLastLogin(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`, userID)
	return err
}

func (r *sqliteRepo) GetProfile(ctx context.Context, userID int64) (*PatientProfile, error) {
	var (
		p       PatientProfile
		age     sql.NullInt64
		sex     sql.NullString
		history sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, age, sex, medical_history FROM patient_profiles WHERE user_id = ?`,
		userID).Scan(&p.UserID, &age, &sex, &history)
	if err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	p.Sex = sex.String
	p.MedicalHistory = history.String
	return &p, nil
}

func (r *sqliteRepo) UpsertProfile(ctx context.Context, p *PatientProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO patient_profiles (user_id, age, sex, medical_history)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   age = excluded.age,
		   sex = excluded.sex,
		   medical_history = excluded.medical_history`,
		p.UserID, p.Age, p.Sex, p.MedicalHistory)
	if err != nil {
		return fmt.Errorf("failed to save patient profile: %w", err)
	}
	return nil
}
