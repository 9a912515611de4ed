package routes

import (
	"strings"

	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/model"
)

const (
	Landing = "/"

	AdminPrefix   = "/admin"
	PatientPrefix = "/pacientes"
	DoctorPrefix  = "/medicos"

	AdminLogin   = "/admin/login"
	PatientLogin = "/pacientes/login"
	DoctorLogin  = "/medicos/login"

	AdminDashboard   = "/admin/dashboard"
	PatientDashboard = "/pacientes/dashboard"
	DoctorDashboard  = "/medicos/dashboard"
)

// Paths reachable without a session. Entries match the path itself and any
// sub-path under it, so /pacientes/verificar-email/estado stays public.
var patientPublic = []string{
	PatientLogin,
	"/pacientes/registro",
	"/pacientes/recuperar-usuario",
	"/pacientes/recuperar-password",
	"/pacientes/verificar-email",
}

var doctorPublic = []string{
	DoctorLogin,
	"/medicos/registro",
	"/medicos/recuperar-usuario",
	"/medicos/recuperar-password",
	"/medicos/verificar-email",
}

var adminPublic = []string{
	AdminLogin,
}

func IsPublic(path string) bool {
	if path == Landing {
		return true
	}
	return IsPatientPublic(path) || IsDoctorPublic(path) || matchesAny(path, adminPublic)
}

func IsPatientPublic(path string) bool {
	return matchesAny(path, patientPublic)
}

func IsDoctorPublic(path string) bool {
	return matchesAny(path, doctorPublic)
}

// Portal resolves the portal a path belongs to by prefix, so unknown
// sub-paths under a portal still hit the same role check.
func Portal(path string) (model.Role, bool) {
	switch {
	case underPrefix(path, AdminPrefix):
		return model.RoleAdmin, true
	case underPrefix(path, PatientPrefix):
		return model.RolePatient, true
	case underPrefix(path, DoctorPrefix):
		return model.RoleDoctor, true
	default:
		return "", false
	}
}

// RequiredRole is the role a visitor must hold to stand on a path. It is
// derived from the portal prefix and recomputed on every navigation.
func RequiredRole(path string) model.Role {
	role, ok := Portal(path)
	if !ok {
		return ""
	}
	return role
}

// LoginPortal reports which portal's login page a path is, if any.
func LoginPortal(path string) (model.Role, bool) {
	switch path {
	case AdminLogin:
		return model.RoleAdmin, true
	case PatientLogin:
		return model.RolePatient, true
	case DoctorLogin:
		return model.RoleDoctor, true
	default:
		return "", false
	}
}

func LoginPath(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return AdminLogin
	case model.RolePatient:
		return PatientLogin
	case model.RoleDoctor:
		return DoctorLogin
	default:
		return Landing
	}
}

func DashboardPath(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return AdminDashboard
	case model.RolePatient:
		return PatientDashboard
	case model.RoleDoctor:
		return DoctorDashboard
	default:
		return Landing
	}
}

func matchesAny(path string, list []string) bool {
	for _, entry := range list {
		if underPrefix(path, entry) {
			return true
		}
	}
	return false
}

func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
