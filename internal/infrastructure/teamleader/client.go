// Package teamleader implements the OAuth2 flows and API calls against
// the Teamleader Focus platform.
package teamleader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"skusync/internal/core/apperror"
	"skusync/internal/core/types"
	"skusync/internal/domain/catalog"
	"skusync/internal/domain/pricing"
	"skusync/pkg/logger"
)

const (
	// DefaultAuthBaseURL hosts the OAuth2 token endpoint.
	DefaultAuthBaseURL = "https://focus.teamleader.eu"
	// DefaultAPIBaseURL hosts the JSON API.
	DefaultAPIBaseURL = "https://api.focus.teamleader.eu"
)

// Credentials are the stored OAuth2 client settings and tokens for the
// Teamleader integration. Tokens are empty until the connect flow has
// run; Teamleader rotates refresh tokens on every refresh.
type Credentials struct {
	ClientID       string     `json:"client_id"`
	ClientSecret   string     `json:"client_secret"`
	RedirectURI    string     `json:"redirect_uri,omitempty"`
	AccessToken    string     `json:"access_token,omitempty"`
	RefreshToken   string     `json:"refresh_token,omitempty"`
	ExpiresIn      int        `json:"expires_in,omitempty"`
	TokenUpdatedAt *time.Time `json:"token_updated_at,omitempty"`
}

// Connected reports whether an access token is stored.
func (c *Credentials) Connected() bool {
	return c != nil && c.AccessToken != ""
}

// CredentialStore persists integration credentials. Load returns nil
// when the integration has never been configured.
type CredentialStore interface {
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, creds *Credentials) error
}

// Config holds client configuration.
type Config struct {
	AuthBaseURL    string
	APIBaseURL     string
	B2BPriceListID string
	HTTPClient     *http.Client
}

// Client talks to Teamleader with stored credentials, refreshing the
// access token once on a 401.
type Client struct {
	cfg   Config
	store CredentialStore
	http  *http.Client
}

// NewClient creates a new Teamleader client.
func NewClient(cfg Config, store CredentialStore) *Client {
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = DefaultAuthBaseURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, store: store, http: httpClient}
}

// Connected reports whether the integration holds an access token.
func (c *Client) Connected(ctx context.Context) (bool, error) {
	creds, err := c.store.Load(ctx)
	if err != nil {
		return false, err
	}
	return creds.Connected(), nil
}

// tokenResponse is the OAuth2 token endpoint payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Exchange trades an authorization code for tokens and stores them.
// The redirect URI must match the one used in the authorize step; an
// empty value falls back to the stored one.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) error {
	creds, err := c.requireClientConfig(ctx)
	if err != nil {
		return err
	}

	uri := redirectURI
	if uri == "" {
		uri = creds.RedirectURI
	}
	if uri == "" {
		return apperror.NewValidation("redirect URI is required").WithDetail("field", "redirect_uri")
	}

	form := url.Values{}
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", uri)

	tokens, err := c.postTokenForm(ctx, form)
	if err != nil {
		return err
	}

	return c.storeTokens(ctx, creds, tokens)
}

// refresh obtains a fresh token pair with the stored refresh token.
// Teamleader rotates refresh tokens, so the new pair always replaces
// the old one. A rejected refresh token clears the stored tokens and
// reports the integration as disconnected.
func (c *Client) refresh(ctx context.Context, creds *Credentials) (*Credentials, error) {
	if creds.RefreshToken == "" {
		return nil, apperror.NewNotConnected("teamleader")
	}

	form := url.Values{}
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("refresh_token", creds.RefreshToken)
	form.Set("grant_type", "refresh_token")

	tokens, err := c.postTokenForm(ctx, form)
	if err != nil {
		if isInvalidGrant(err) {
			logger.Warn(ctx, "teamleader refresh token rejected, clearing stored tokens")
			creds.AccessToken = ""
			creds.RefreshToken = ""
			if saveErr := c.store.Save(ctx, creds); saveErr != nil {
				logger.Error(ctx, "failed to clear teamleader tokens", "error", saveErr)
			}
			return nil, apperror.NewNotConnected("teamleader")
		}
		return nil, err
	}

	if err := c.storeTokens(ctx, creds, tokens); err != nil {
		return nil, err
	}
	return creds, nil
}

// Do posts a JSON payload to an API endpoint such as "products.add".
// On a 401 the access token is refreshed and the call retried exactly
// once. Any other non-2xx response maps to an upstream error.
func (c *Client) Do(ctx context.Context, endpoint string, payload any) (json.RawMessage, error) {
	creds, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !creds.Connected() {
		return nil, apperror.NewNotConnected("teamleader")
	}

	body, status, err := c.apiCall(ctx, endpoint, payload, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		logger.Info(ctx, "teamleader access token expired, refreshing", "endpoint", endpoint)
		creds, err = c.refresh(ctx, creds)
		if err != nil {
			return nil, err
		}
		body, status, err = c.apiCall(ctx, endpoint, payload, creds.AccessToken)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status >= 300 {
		return nil, apperror.NewUpstream(status, string(body))
	}
	return body, nil
}

// productPayload is the products.add / products.update request body.
type productPayload struct {
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name"`
	Code          string         `json:"code"`
	Description   string         `json:"description"`
	SellingPrice  moneyPayload   `json:"selling_price"`
	PurchasePrice moneyPayload   `json:"purchase_price"`
	PriceListRows []priceListRow `json:"price_list_prices,omitempty"`
}

type moneyPayload struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type priceListRow struct {
	PriceListID string       `json:"price_list_id"`
	Price       moneyPayload `json:"price"`
}

// PushProduct creates or updates the product in the Teamleader catalog
// and returns its external id. The Consumer final price becomes the
// selling price; the B2B final price lands on the configured price
// list.
func (c *Client) PushProduct(ctx context.Context, p *catalog.Product, description string) (string, error) {
	payload := productPayload{
		Name:          p.Name,
		Code:          p.SKU,
		Description:   description,
		SellingPrice:  moneyPayload{Amount: finalPrice(p, pricing.PriceListConsumer), Currency: "EUR"},
		PurchasePrice: moneyPayload{Amount: types.Float64(p.PurchaseCost), Currency: "EUR"},
	}
	if c.cfg.B2BPriceListID != "" {
		payload.PriceListRows = []priceListRow{{
			PriceListID: c.cfg.B2BPriceListID,
			Price:       moneyPayload{Amount: finalPrice(p, pricing.PriceListB2B), Currency: "EUR"},
		}}
	}

	endpoint := "products.add"
	if p.ExternalRef != nil && *p.ExternalRef != "" {
		endpoint = "products.update"
		payload.ID = *p.ExternalRef
	}

	raw, err := c.Do(ctx, endpoint, payload)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
		ID string `json:"id"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return "", fmt.Errorf("decode teamleader response: %w", err)
		}
	}

	switch {
	case parsed.Data.ID != "":
		return parsed.Data.ID, nil
	case parsed.ID != "":
		return parsed.ID, nil
	case payload.ID != "":
		// updates return no body; the reference is unchanged
		return payload.ID, nil
	default:
		return "", apperror.NewUpstream(http.StatusOK, "response carried no product id")
	}
}

func (c *Client) requireClientConfig(ctx context.Context) (*Credentials, error) {
	creds, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if creds == nil || creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, apperror.NewNotConnected("teamleader")
	}
	return creds, nil
}

func (c *Client) storeTokens(ctx context.Context, creds *Credentials, tokens *tokenResponse) error {
	now := time.Now().UTC()
	creds.AccessToken = tokens.AccessToken
	creds.RefreshToken = tokens.RefreshToken
	creds.ExpiresIn = tokens.ExpiresIn
	creds.TokenUpdatedAt = &now
	return c.store.Save(ctx, creds)
}

func (c *Client) postTokenForm(ctx context.Context, form url.Values) (*tokenResponse, error) {
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
		return nil, apperror.NewUpstream(resp.StatusCode, string(body))
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tokens.AccessToken == "" {
		return nil, apperror.NewUpstream(resp.StatusCode, "token response missing access_token")
	}
	return &tokens, nil
}

func (c *Client) apiCall(ctx context.Context, endpoint string, payload any, accessToken string) (json.RawMessage, int, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encode payload: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	apiURL := c.cfg.APIBaseURL + "/" + strings.TrimPrefix(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("build api request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read api response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// isInvalidGrant matches the upstream rejection of a stale refresh
// token: a 400 mentioning invalid_grant or invalid_request.
func isInvalidGrant(err error) bool {
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeUpstream {
		return false
	}
	status, _ := appErr.Details["upstreamStatus"].(int)
	if status != http.StatusBadRequest {
		return false
	}
	body, _ := appErr.Details["upstreamBody"].(string)
	return strings.Contains(body, "invalid_grant") || strings.Contains(body, "invalid_request")
}

func finalPrice(p *catalog.Product, list pricing.PriceList) float64 {
	if entry := p.PriceEntry(list); entry != nil {
		return types.Float64(entry.FinalPrice)
	}
	return 0
}
