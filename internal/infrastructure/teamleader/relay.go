package teamleader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"skusync/internal/core/apperror"
)

// Relay actions. The connect flow in the admin UI drives the token
// actions; "request" forwards an arbitrary Teamleader API call.
const (
	ActionExchange = "exchange"
	ActionRefresh  = "refresh"
	ActionRequest  = "request"
)

// RelayRequest is the browser-facing relay payload.
type RelayRequest struct {
	Action      string            `json:"action"`
	Code        string            `json:"code,omitempty"`
	RedirectURI string            `json:"redirect_uri,omitempty"`
	URL         string            `json:"url,omitempty"`
	Method      string            `json:"method,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// relayError is the error envelope the relay returns in place of the
// upstream body. The relay itself always answers 200 so the caller can
// read the envelope.
type relayError struct {
	Error          json.RawMessage `json:"error"`
	UpstreamStatus int             `json:"upstreamStatus"`
}

// Relay executes a relay action and returns the JSON to hand back to
// the caller: the raw upstream body on success, or an error envelope
// with the upstream status. Token responses from exchange and refresh
// are persisted before being returned.
func (c *Client) Relay(ctx context.Context, req RelayRequest) (json.RawMessage, error) {
	switch req.Action {
	case ActionExchange:
		return c.relayToken(ctx, func(creds *Credentials) (url.Values, error) {
			uri := req.RedirectURI
			if uri == "" {
				uri = creds.RedirectURI
			}
			if uri == "" {
				return nil, apperror.NewValidation("redirect URI is required").WithDetail("field", "redirect_uri")
			}
			form := url.Values{}
			form.Set("client_id", creds.ClientID)
			form.Set("client_secret", creds.ClientSecret)
			form.Set("code", req.Code)
			form.Set("grant_type", "authorization_code")
			form.Set("redirect_uri", uri)
			return form, nil
		})

	case ActionRefresh:
		return c.relayToken(ctx, func(creds *Credentials) (url.Values, error) {
			if creds.RefreshToken == "" {
				return nil, apperror.NewNotConnected("teamleader")
			}
			form := url.Values{}
			form.Set("client_id", creds.ClientID)
			form.Set("client_secret", creds.ClientSecret)
			form.Set("refresh_token", creds.RefreshToken)
			form.Set("grant_type", "refresh_token")
			return form, nil
		})

	case ActionRequest, "":
		return c.relayForward(ctx, req)

	default:
		return nil, apperror.NewInvalidInput("unknown relay action").WithDetail("action", req.Action)
	}
}

func (c *Client) relayToken(ctx context.Context, buildForm func(*Credentials) (url.Values, error)) (json.RawMessage, error) {
	creds, err := c.requireClientConfig(ctx)
	if err != nil {
		return nil, err
	}

	form, err := buildForm(creds)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.AuthBaseURL+"/oauth2/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return wrapRelayError(body, resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tokens.AccessToken != "" {
		if err := c.storeTokens(ctx, creds, &tokens); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (c *Client) relayForward(ctx context.Context, relayReq RelayRequest) (json.RawMessage, error) {
	if relayReq.URL == "" || !strings.Contains(relayReq.URL, "teamleader.eu") {
		return wrapRelayError([]byte(`"Only Teamleader URLs allowed"`), http.StatusForbidden)
	}

	method := relayReq.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if relayReq.Body != "" {
		body = strings.NewReader(relayReq.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, relayReq.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build relay request: %w", err)
	}
	for k, v := range relayReq.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Authorization") == "" {
		creds, err := c.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if creds.Connected() {
			req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wrapRelayError(respBody, resp.StatusCode)
	}
	if len(respBody) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return respBody, nil
}

// wrapRelayError packs a non-2xx upstream body into the error envelope.
// Non-JSON bodies are carried as a JSON string.
func wrapRelayError(body []byte, status int) (json.RawMessage, error) {
	payload := json.RawMessage(body)
	if !json.Valid(body) {
		quoted, err := json.Marshal(string(body))
		if err != nil {
			return nil, err
		}
		payload = quoted
	}
	return json.Marshal(relayError{Error: payload, UpstreamStatus: status})
}
