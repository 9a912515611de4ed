package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/model"
)

// ErrUnauthenticated is returned by Probe when the core API rejects the
// session cookie. Callers treat it as "no session", not as a failure.
var ErrUnauthenticated = errors.New("unauthenticated")

// APIError carries a non-2xx upstream response. Message holds the server's
// stated error when the body had one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api status %d", e.Status)
}

type VerificationStatus struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// Clinic talks to the core clinic API. Session-bearing calls forward the
// browser's Cookie header verbatim; the cookie itself is opaque here.
type Clinic struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Clinic {
	return &Clinic{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *Clinic) Probe(ctx context.Context, cookies string) (model.Identity, error) {
	var identity model.Identity
	resp, err := c.do(ctx, http.MethodGet, "/api/user", cookies, nil)
	if err != nil {
		return identity, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return identity, ErrUnauthenticated
	}
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return identity, err
	}
	if role, ok := model.ParseRole(string(identity.Role)); ok {
		identity.Role = role
	}
	return identity, nil
}

type loginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	ExpectedRole string `json:"expectedRole,omitempty"`
}

type loginResponse struct {
	User model.Identity `json:"user"`
}

func (c *Clinic) Login(ctx context.Context, email, password string, expected model.Role, cookies string) (model.Identity, []string, error) {
	body := loginRequest{Email: email, Password: password, ExpectedRole: string(expected)}
	resp, err := c.do(ctx, http.MethodPost, "/api/login", cookies, body)
	if err != nil {
		return model.Identity{}, nil, err
	}
	defer resp.Body.Close()

	setCookies := resp.Header.Values("Set-Cookie")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Identity{}, setCookies, apiError(resp)
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.Identity{}, setCookies, err
	}
	return out.User, setCookies, nil
}

func (c *Clinic) Logout(ctx context.Context, cookies string) ([]string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/logout", cookies, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	drain(resp.Body)

	setCookies := resp.Header.Values("Set-Cookie")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return setCookies, apiError(resp)
	}
	return setCookies, nil
}

func (c *Clinic) ForgotPassword(ctx context.Context, email string) error {
	return c.post(ctx, "/api/forgot-password", map[string]string{"email": email})
}

func (c *Clinic) RecoverUsername(ctx context.Context, dni string) error {
	return c.post(ctx, "/api/recover-username", map[string]string{"dni": dni})
}

func (c *Clinic) RecoverUsernameDoctor(ctx context.Context, matricula string) error {
	return c.post(ctx, "/api/recover-username-doctor", map[string]string{"matricula": matricula})
}

func (c *Clinic) ResendVerification(ctx context.Context, email string) error {
	return c.post(ctx, "/api/resend-verification", map[string]string{"email": email})
}

func (c *Clinic) CheckVerificationStatus(ctx context.Context, token string) (VerificationStatus, error) {
	var status VerificationStatus
	resp, err := c.do(ctx, http.MethodGet, "/api/check-verification-status?token="+url.QueryEscape(token), "", nil)
	if err != nil {
		return status, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return status, apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, err
	}
	return status, nil
}

func (c *Clinic) post(ctx context.Context, path string, body any) error {
	resp, err := c.do(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	drain(resp.Body)
	return nil
}

func (c *Clinic) do(ctx context.Context, method, path, cookies string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookies != "" {
		req.Header.Set("Cookie", cookies)
	}

	return c.httpClient.Do(req)
}

func apiError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		} else {
			apiErr.Message = body.Message
		}
	}
	return apiErr
}

func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, body)
}
