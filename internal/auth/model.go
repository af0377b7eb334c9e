package auth

import "time"

const (
	RolePatient   = "patient"
	RoleClinician = "clinician"
	RoleAuditor   = "auditor"
)

// ValidRole reports whether the role is one the schema accepts.
func ValidRole(role string) bool {
	switch role {
	case RolePatient, RoleClinician, RoleAuditor:
		return true
	}
	return false
}

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// PatientProfile carries the demographics a patient fills in once and
// reuses across screenings.
type PatientProfile struct {
	UserID         int64  `json:"user_id"`
	Age            *int   `json:"age,omitempty"`
	Sex            string `json:"sex,omitempty"`
	MedicalHistory string `json:"medical_history,omitempty"`
}
