package model

import "strings"

// Role is the closed set of portal roles. A session carries exactly one.
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func ParseRole(value string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(value))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RolePatient:
		return RolePatient, true
	case RoleDoctor:
		return RoleDoctor, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePatient, RoleDoctor:
		return true
	default:
		return false
	}
}

type Identity struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone"`
	Role         Role   `json:"role"`
	ProfileImage string `json:"profileImage,omitempty"`
	DNI          string `json:"dni,omitempty"`
	Matricula    string `json:"matricula,omitempty"`
}
