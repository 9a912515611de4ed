package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/clients"
)

type Kind string

const (
	PatientUsername Kind = "patient-username"
	DoctorUsername  Kind = "doctor-username"
	Password        Kind = "password"
)

type State string

const (
	StateInitial   State = "initial"
	StateSubmitted State = "submitted"
)

// ConfirmationMessage is the single terminal copy shown after any accepted
// submission. Whether the identifier matched an account is deliberately not
// observable here: the core API does not return it and no code path may
// branch on it.
const ConfirmationMessage = "Si el identificador está registrado, recibirás un correo con las instrucciones."

const connectionErrorMessage = "No se pudo conectar con el servidor. Intente nuevamente."

// Format is the client-side shape check for doctor license numbers. It runs
// before any network call; a failing identifier never reaches the core API.
type Format struct {
	MinLen int
	MaxLen int
	Prefix string
	Suffix string
}

func (f Format) Validate(value string) error {
	if f.MinLen > 0 && len(value) < f.MinLen {
		return fmt.Errorf("la matrícula debe tener al menos %d caracteres", f.MinLen)
	}
	if f.MaxLen > 0 && len(value) > f.MaxLen {
		return fmt.Errorf("la matrícula debe tener como máximo %d caracteres", f.MaxLen)
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return errors.New("la matrícula solo puede contener dígitos")
		}
	}
	if f.Prefix != "" && !strings.HasPrefix(value, f.Prefix) {
		return fmt.Errorf("la matrícula debe comenzar con %s", f.Prefix)
	}
	if f.Suffix != "" && !strings.HasSuffix(value, f.Suffix) {
		return fmt.Errorf("la matrícula debe terminar con %s", f.Suffix)
	}
	return nil
}

type Outcome struct {
	OK bool
	// FieldError is a client-side validation failure; no request was sent.
	FieldError string
	// ServerError is the upstream's stated error for a structurally invalid
	// payload. It never says whether the identifier exists.
	ServerError string
}

// Controller collects one identifier and submits it to the role-appropriate
// recovery endpoint. Submitted is a terminal state; only Reset leaves it.
type Controller struct {
	kind   Kind
	client *clients.Clinic
	format Format

	mu    sync.Mutex
	state State
}

func NewController(kind Kind, client *clients.Clinic, format Format) *Controller {
	return &Controller{kind: kind, client: client, format: format, state: StateInitial}
}

func (c *Controller) Submit(ctx context.Context, identifier string) Outcome {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Outcome{FieldError: "Ingrese un identificador."}
	}
	if c.kind == DoctorUsername {
		if err := c.format.Validate(identifier); err != nil {
			return Outcome{FieldError: err.Error()}
		}
	}

	if err := c.send(ctx, identifier); err != nil {
		var apiErr *clients.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return Outcome{ServerError: apiErr.Message}
		}
		return Outcome{ServerError: connectionErrorMessage}
	}

	c.mu.Lock()
	c.state = StateSubmitted
	c.mu.Unlock()
	return Outcome{OK: true}
}

func (c *Controller) send(ctx context.Context, identifier string) error {
	switch c.kind {
	case PatientUsername:
		return c.client.RecoverUsername(ctx, identifier)
	case DoctorUsername:
		return c.client.RecoverUsernameDoctor(ctx, identifier)
	case Password:
		return c.client.ForgotPassword(ctx, identifier)
	default:
		return fmt.Errorf("unknown recovery kind %q", c.kind)
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset returns to the initial state ("search another identifier").
func (c *Controller) Reset() {
	c.mu.Lock()
	c.state = StateInitial
	c.mu.Unlock()
}
