package guard

import (
	"testing"

	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/model"
	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/routes"
)

func identity(role model.Role) *model.Identity {
	return &model.Identity{ID: "u-1", Email: "user@clinica.local", Role: role}
}

func TestDecideLoading(t *testing.T) {
	sess := Session{Identity: identity(model.RolePatient), Loading: true}
	decision := Decide(sess, "/pacientes/dashboard", model.RolePatient)
	if decision.Action != Suspend {
		t.Fatalf("expected suspend while loading, got %v", decision)
	}
}

func TestDecideUnauthenticated(t *testing.T) {
	cases := []struct {
		path   string
		action Action
		target string
	}{
		{path: "/", action: Render},
		{path: "/pacientes/login", action: Render},
		{path: "/pacientes/registro", action: Render},
		{path: "/pacientes/recuperar-usuario", action: Render},
		{path: "/pacientes/recuperar-password", action: Render},
		{path: "/pacientes/verificar-email", action: Render},
		{path: "/pacientes/verificar-email/estado", action: Render},
		{path: "/medicos/login", action: Render},
		{path: "/medicos/recuperar-usuario", action: Render},
		{path: "/admin/login", action: Render},
		{path: "/pacientes/dashboard", action: Redirect, target: routes.PatientLogin},
		{path: "/pacientes/turnos", action: Redirect, target: routes.PatientLogin},
		{path: "/medicos/turnos", action: Redirect, target: routes.DoctorLogin},
		{path: "/medicos/dashboard", action: Redirect, target: routes.DoctorLogin},
		{path: "/medicos/cualquier/cosa", action: Redirect, target: routes.DoctorLogin},
		{path: "/admin/dashboard", action: Redirect, target: routes.AdminLogin},
		{path: "/admin/consultorios", action: Redirect, target: routes.AdminLogin},
		{path: "/desconocido", action: Redirect, target: routes.AdminLogin},
	}
	for _, tc := range cases {
		decision := Decide(Session{}, tc.path, routes.RequiredRole(tc.path))
		if decision.Action != tc.action {
			t.Fatalf("%s: expected action %v, got %v", tc.path, tc.action, decision.Action)
		}
		if tc.action == Redirect && decision.Target != tc.target {
			t.Fatalf("%s: expected redirect to %s, got %s", tc.path, tc.target, decision.Target)
		}
		if tc.action == Render && decision.Target != "" {
			t.Fatalf("%s: render decision should carry no target", tc.path)
		}
	}
}

func TestDecideRoleMismatch(t *testing.T) {
	cases := []struct {
		role   model.Role
		path   string
		target string
	}{
		{role: model.RoleDoctor, path: "/pacientes/dashboard", target: routes.DoctorDashboard},
		{role: model.RolePatient, path: "/medicos/turnos", target: routes.PatientDashboard},
		{role: model.RoleAdmin, path: "/pacientes/perfil", target: routes.AdminDashboard},
		{role: model.RolePatient, path: "/admin/consultorios", target: routes.PatientDashboard},
		{role: model.RoleDoctor, path: "/admin/login", target: routes.DoctorDashboard},
	}
	for _, tc := range cases {
		sess := Session{Identity: identity(tc.role)}
		decision := Decide(sess, tc.path, routes.RequiredRole(tc.path))
		if decision.Action != Redirect || decision.Target != tc.target {
			t.Fatalf("%s as %s: expected redirect to %s, got %+v", tc.path, tc.role, tc.target, decision)
		}
	}
}

func TestDecideMatchingLoginRedirectsToDashboard(t *testing.T) {
	cases := []struct {
		role   model.Role
		path   string
		target string
	}{
		{role: model.RoleAdmin, path: routes.AdminLogin, target: routes.AdminDashboard},
		{role: model.RolePatient, path: routes.PatientLogin, target: routes.PatientDashboard},
		{role: model.RoleDoctor, path: routes.DoctorLogin, target: routes.DoctorDashboard},
	}
	for _, tc := range cases {
		decision := Decide(Session{Identity: identity(tc.role)}, tc.path, routes.RequiredRole(tc.path))
		if decision.Action != Redirect || decision.Target != tc.target {
			t.Fatalf("%s as %s: expected redirect to %s, got %+v", tc.path, tc.role, tc.target, decision)
		}
	}
}

func TestDecideLandingRedirectsToOwnDashboard(t *testing.T) {
	cases := map[model.Role]string{
		model.RoleAdmin:   routes.AdminDashboard,
		model.RolePatient: routes.PatientDashboard,
		model.RoleDoctor:  routes.DoctorDashboard,
	}
	for role, target := range cases {
		decision := Decide(Session{Identity: identity(role)}, "/", routes.RequiredRole("/"))
		if decision.Action != Redirect || decision.Target != target {
			t.Fatalf("landing as %s: expected redirect to %s, got %+v", role, target, decision)
		}
	}
}

func TestDecideRendersOwnPortal(t *testing.T) {
	cases := []struct {
		role model.Role
		path string
	}{
		{role: model.RolePatient, path: "/pacientes/dashboard"},
		{role: model.RolePatient, path: "/pacientes/turnos"},
		{role: model.RoleDoctor, path: "/medicos/horarios"},
		{role: model.RoleDoctor, path: "/medicos/pagina-inexistente"},
		{role: model.RoleAdmin, path: "/admin/consultorios"},
	}
	for _, tc := range cases {
		decision := Decide(Session{Identity: identity(tc.role)}, tc.path, routes.RequiredRole(tc.path))
		if decision.Action != Render {
			t.Fatalf("%s as %s: expected render, got %+v", tc.path, tc.role, decision)
		}
	}
}

func TestDecideUnknownRoleFallsBackToLanding(t *testing.T) {
	sess := Session{Identity: &model.Identity{ID: "u-2", Role: "superuser"}}
	decision := Decide(sess, "/admin/dashboard", model.RoleAdmin)
	if decision.Action != Redirect || decision.Target != routes.Landing {
		t.Fatalf("expected fallback redirect to landing, got %+v", decision)
	}

	// Already on the landing page the fallback must render, not redirect to
	// the same path over and over.
	decision = Decide(sess, routes.Landing, routes.RequiredRole(routes.Landing))
	if decision.Action != Render {
		t.Fatalf("expected render on landing for unknown role, got %+v", decision)
	}
}
