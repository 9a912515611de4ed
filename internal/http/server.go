package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/clients"
	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/config"
	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/guard"
	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/model"
	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/recovery"
	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/routes"
	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/session"
	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/verify"
)

type Server struct {
	cfg     config.Config
	client  *clients.Clinic
	cache   *session.Cache
	limiter rateLimiter
	watches *verify.Manager
}

func NewServer(cfg config.Config, client *clients.Clinic, redisClient *redis.Client, watches *verify.Manager) *Server {
	s := &Server{
		cfg:     cfg,
		client:  client,
		cache:   session.NewCache(redisClient, cfg.SessionCacheTTL),
		watches: watches,
	}
	if redisClient != nil && cfg.RecoveryRateLimit > 0 {
		s.limiter = &redisWindowLimiter{
			redis:  redisClient,
			limit:  cfg.RecoveryRateLimit,
			window: cfg.RecoveryRateWindow,
		}
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware, s.guardMiddleware)

		r.Get("/", s.handleLanding)
		r.HandleFunc("/*", s.handleNotFound)

		s.mountAdmin(r)
		s.mountPatients(r)
		s.mountDoctors(r)
	})

	return r
}

func (s *Server) mountAdmin(r chi.Router) {
	r.Route(routes.AdminPrefix, func(r chi.Router) {
		r.Get("/login", s.handlePage(model.RoleAdmin, "login"))
		r.Post("/login", s.handleLogin(model.RoleAdmin))
		r.Post("/logout", s.handleLogout)

		r.Get("/dashboard", s.handlePage(model.RoleAdmin, "dashboard"))
		r.Get("/turnos", s.handlePage(model.RoleAdmin, "turnos"))
		r.Get("/consultorios", s.handlePage(model.RoleAdmin, "consultorios"))
		r.Get("/medicos", s.handlePage(model.RoleAdmin, "medicos"))
		r.Get("/pacientes", s.handlePage(model.RoleAdmin, "pacientes"))

		r.NotFound(s.handlePage(model.RoleAdmin, "not-found"))
	})
}

func (s *Server) mountPatients(r chi.Router) {
	r.Route(routes.PatientPrefix, func(r chi.Router) {
		r.Get("/login", s.handlePage(model.RolePatient, "login"))
		r.Post("/login", s.handleLogin(model.RolePatient))
		r.Post("/logout", s.handleLogout)
		r.Get("/registro", s.handlePage(model.RolePatient, "registro"))

		r.Get("/recuperar-usuario", s.handlePage(model.RolePatient, "recuperar-usuario"))
		r.Post("/recuperar-usuario", s.handleRecoverPatientUsername)
		r.Get("/recuperar-password", s.handlePage(model.RolePatient, "recuperar-password"))
		r.Post("/recuperar-password", s.handleForgotPassword)

		r.Get("/verificar-email", s.handleVerifyPage(model.RolePatient))
		r.Get("/verificar-email/estado", s.handleVerifyStatus)
		r.Post("/verificar-email/reenviar", s.handleVerifyResend)

		r.Get("/dashboard", s.handlePage(model.RolePatient, "dashboard"))
		r.Get("/turnos", s.handlePage(model.RolePatient, "turnos"))
		r.Get("/perfil", s.handlePage(model.RolePatient, "perfil"))

		r.NotFound(s.handlePage(model.RolePatient, "not-found"))
	})
}

func (s *Server) mountDoctors(r chi.Router) {
	r.Route(routes.DoctorPrefix, func(r chi.Router) {
		r.Get("/login", s.handlePage(model.RoleDoctor, "login"))
		r.Post("/login", s.handleLogin(model.RoleDoctor))
		r.Post("/logout", s.handleLogout)
		r.Get("/registro", s.handlePage(model.RoleDoctor, "registro"))

		r.Get("/recuperar-usuario", s.handlePage(model.RoleDoctor, "recuperar-usuario"))
		r.Post("/recuperar-usuario", s.handleRecoverDoctorUsername)
		r.Get("/recuperar-password", s.handlePage(model.RoleDoctor, "recuperar-password"))
		r.Post("/recuperar-password", s.handleForgotPassword)

		r.Get("/verificar-email", s.handleVerifyPage(model.RoleDoctor))
		r.Get("/verificar-email/estado", s.handleVerifyStatus)
		r.Post("/verificar-email/reenviar", s.handleVerifyResend)

		r.Get("/dashboard", s.handlePage(model.RoleDoctor, "dashboard"))
		r.Get("/turnos", s.handlePage(model.RoleDoctor, "turnos"))
		r.Get("/horarios", s.handlePage(model.RoleDoctor, "horarios"))
		r.Get("/perfil", s.handlePage(model.RoleDoctor, "perfil"))

		r.NotFound(s.handlePage(model.RoleDoctor, "not-found"))
	})
}

type sessionKey struct{}

func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies := r.Header.Get("Cookie")

		var snap session.Snapshot
		if identity, ok := s.cache.Get(r.Context(), cookies); ok {
			snap = session.Snapshot{Identity: identity}
		} else {
			store := session.New(s.client, cookies)
			store.CheckAuth(r.Context())
			snap = store.Snapshot()
			s.cache.Set(r.Context(), cookies, snap.Identity)
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, snap)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) guardMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := sessionFromContext(r.Context())
		decision := guard.Decide(
			guard.Session{Identity: snap.Identity, Loading: snap.Loading},
			r.URL.Path,
			routes.RequiredRole(r.URL.Path),
		)
		switch decision.Action {
		case guard.Suspend:
			// Identity still resolving: render nothing rather than guess.
			w.WriteHeader(http.StatusNoContent)
		case guard.Redirect:
			http.Redirect(w, r, decision.Target, http.StatusFound)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func sessionFromContext(ctx context.Context) session.Snapshot {
	snap, _ := ctx.Value(sessionKey{}).(session.Snapshot)
	return snap
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"page": "landing",
		"portales": []string{
			routes.PatientLogin,
			routes.DoctorLogin,
			routes.AdminLogin,
		},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"page": "not-found"})
}

// handlePage serves a portal screen as a JSON page descriptor. Screen content
// itself lives in the front end; the gateway only decides who may see it and
// hands over the shell header.
func (s *Server) handlePage(portal model.Role, page string) http.HandlerFunc {
	status := http.StatusOK
	if page == "not-found" {
		status = http.StatusNotFound
	}
	return func(w http.ResponseWriter, r *http.Request) {
		snap := sessionFromContext(r.Context())
		payload := map[string]any{
			"portal": portal,
			"page":   page,
			"header": portalHeader(portal, snap.Identity),
		}
		writeJSON(w, status, payload)
	}
}

type headerPayload struct {
	Portal model.Role      `json:"portal"`
	Title  string          `json:"title"`
	Logout string          `json:"logout"`
	User   *model.Identity `json:"user,omitempty"`
}

func portalHeader(portal model.Role, identity *model.Identity) headerPayload {
	header := headerPayload{Portal: portal, Logout: "/" + portalSegment(portal) + "/logout"}
	switch portal {
	case model.RoleAdmin:
		header.Title = "Administración"
	case model.RolePatient:
		header.Title = "Portal de Pacientes"
	case model.RoleDoctor:
		header.Title = "Portal de Médicos"
	}
	if identity != nil && identity.Role == portal {
		header.User = identity
	}
	return header
}

func portalSegment(portal model.Role) string {
	switch portal {
	case model.RolePatient:
		return "pacientes"
	case model.RoleDoctor:
		return "medicos"
	default:
		return "admin"
	}
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(portal model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginBody
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing_credentials")
			return
		}

		cookies := r.Header.Get("Cookie")
		store := session.New(s.client, cookies)
		result, setCookies := store.Login(r.Context(), req.Email, req.Password, portal)
		for _, cookie := range setCookies {
			w.Header().Add("Set-Cookie", cookie)
		}
		if !result.OK {
			// One generic notice for bad credentials and unknown accounts.
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":   "invalid_credentials",
				"message": result.Message,
			})
			return
		}

		s.cache.Drop(r.Context(), cookies)
		snap := store.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"user":     snap.Identity,
			"redirect": routes.DashboardPath(portal),
		})
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookies := r.Header.Get("Cookie")
	store := session.New(s.client, cookies)
	setCookies := store.Logout(r.Context())
	for _, cookie := range setCookies {
		w.Header().Add("Set-Cookie", cookie)
	}
	s.cache.Drop(r.Context(), cookies)
	http.Redirect(w, r, routes.Landing, http.StatusFound)
}

func (s *Server) handleRecoverPatientUsername(w http.ResponseWriter, r *http.Request) {
	if !s.allowRecovery(r.Context(), clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too_many_requests")
		return
	}
	var req struct {
		DNI string `json:"dni"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	ctrl := recovery.NewController(recovery.PatientUsername, s.client, recovery.Format{})
	s.writeRecoveryOutcome(w, ctrl.Submit(r.Context(), req.DNI))
}

func (s *Server) handleRecoverDoctorUsername(w http.ResponseWriter, r *http.Request) {
	if !s.allowRecovery(r.Context(), clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too_many_requests")
		return
	}
	var req struct {
		Matricula string `json:"matricula"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	ctrl := recovery.NewController(recovery.DoctorUsername, s.client, s.matriculaFormat())
	s.writeRecoveryOutcome(w, ctrl.Submit(r.Context(), req.Matricula))
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if !s.allowRecovery(r.Context(), clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too_many_requests")
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	ctrl := recovery.NewController(recovery.Password, s.client, recovery.Format{})
	s.writeRecoveryOutcome(w, ctrl.Submit(r.Context(), req.Email))
}

// writeRecoveryOutcome collapses "found" and "not found" into one accepted
// response. Only validation problems ever produce a distinct answer.
func (s *Server) writeRecoveryOutcome(w http.ResponseWriter, outcome recovery.Outcome) {
	switch {
	case outcome.FieldError != "":
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "invalid_identifier",
			"message": outcome.FieldError,
		})
	case outcome.ServerError != "":
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "invalid_request",
			"message": outcome.ServerError,
		})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  string(recovery.StateSubmitted),
			"message": recovery.ConfirmationMessage,
		})
	}
}

func (s *Server) matriculaFormat() recovery.Format {
	return recovery.Format{
		MinLen: s.cfg.MatriculaMinLen,
		MaxLen: s.cfg.MatriculaMaxLen,
		Prefix: s.cfg.MatriculaPrefix,
		Suffix: s.cfg.MatriculaSuffix,
	}
}

func (s *Server) handleVerifyPage(portal model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			// No token, no polling.
			writeJSON(w, http.StatusOK, map[string]any{
				"portal": portal,
				"page":   "verificar-email",
				"watch":  verify.Status{State: verify.StateIdle},
			})
			return
		}
		watch := s.watches.Start(token, routes.LoginPath(portal))
		writeJSON(w, http.StatusOK, map[string]any{
			"portal": portal,
			"page":   "verificar-email",
			"watch":  watch.Status(),
		})
	}
}

func (s *Server) handleVerifyStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("watch"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_watch")
		return
	}
	watch, ok := s.watches.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "watch_not_found")
		return
	}
	writeJSON(w, http.StatusOK, watch.Status())
}

func (s *Server) handleVerifyResend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Watch string `json:"watch"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	watch, ok := s.watches.Get(strings.TrimSpace(req.Watch))
	if !ok {
		writeError(w, http.StatusNotFound, "watch_not_found")
		return
	}
	if err := watch.Resend(r.Context()); err != nil {
		if err == verify.ErrEmailNotResolved {
			writeError(w, http.StatusConflict, "email_not_resolved")
			return
		}
		writeError(w, http.StatusBadGateway, "resend_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// rateLimiter gates recovery submissions per client. Allow reports whether
// this attempt stays within the limit.
type rateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// redisWindowLimiter counts attempts in a fixed redis window. On redis errors
// it fails open: losing the limiter must not take the recovery flows down
// with it.
type redisWindowLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func (l *redisWindowLimiter) Allow(ctx context.Context, key string) bool {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("recovery rate limit error: %v", err)
		return true
	}
	if count == 1 {
		window := l.window
		if window <= 0 {
			window = 15 * time.Minute
		}
		_ = l.redis.Expire(ctx, key, window).Err()
	}
	return count <= int64(l.limit)
}

func (s *Server) allowRecovery(ctx context.Context, ip string) bool {
	if s.limiter == nil || ip == "" {
		return true
	}
	return s.limiter.Allow(ctx, "rl:recovery:ip:"+ip)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
