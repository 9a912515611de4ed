package guard

import (
	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/model"
	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/routes"
)

type Action int

const (
	// Suspend renders nothing: identity is still resolving and redirecting
	// now would bounce a visitor who is about to turn out authenticated.
	Suspend Action = iota
	Render
	Redirect
)

type Session struct {
	Identity *model.Identity
	Loading  bool
}

type Decision struct {
	Action Action
	Target string
}

func render() Decision {
	return Decision{Action: Render}
}

func redirect(target string) Decision {
	return Decision{Action: Redirect, Target: target}
}

// Decide maps (session, path, required role) to render-or-redirect. It never
// touches the network; rules are evaluated in precedence order and the first
// match wins. A required role of "" means the path has no role requirement.
func Decide(sess Session, path string, required model.Role) Decision {
	if sess.Loading {
		return Decision{Action: Suspend}
	}

	if sess.Identity == nil {
		if routes.IsPublic(path) {
			return render()
		}
		portal, _ := routes.Portal(path)
		switch {
		case routes.IsPatientPublic(path) || required == model.RolePatient || portal == model.RolePatient:
			return redirect(routes.PatientLogin)
		case routes.IsDoctorPublic(path) || required == model.RoleDoctor || portal == model.RoleDoctor:
			return redirect(routes.DoctorLogin)
		default:
			return redirect(routes.AdminLogin)
		}
	}

	role := sess.Identity.Role
	if !role.Valid() {
		// Unrecognized role shape falls through to the public landing page.
		// Rendering when already there keeps the fallback from looping.
		if path == routes.Landing {
			return render()
		}
		return redirect(routes.Landing)
	}

	if required != "" && role != required {
		return redirect(routes.DashboardPath(role))
	}

	if loginPortal, ok := routes.LoginPortal(path); ok && loginPortal == role {
		return redirect(routes.DashboardPath(role))
	}

	if path == routes.Landing {
		return redirect(routes.DashboardPath(role))
	}

	if portal, ok := routes.Portal(path); ok && portal != role {
		return redirect(routes.DashboardPath(role))
	}

	return render()
}
