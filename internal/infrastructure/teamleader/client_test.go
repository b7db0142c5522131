package teamleader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skusync/internal/core/apperror"
	"skusync/internal/core/types"
	"skusync/internal/domain/catalog"
	"skusync/internal/domain/pricing"
)

type memoryStore struct {
	mu    sync.Mutex
	creds *Credentials
	saves int
}

func (s *memoryStore) Load(_ context.Context) (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil, nil
	}
	cp := *s.creds
	return &cp, nil
}

func (s *memoryStore) Save(_ context.Context, creds *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *creds
	s.creds = &cp
	s.saves++
	return nil
}

func connectedStore() *memoryStore {
	return &memoryStore{creds: &Credentials{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURI:  "https://panel.example.com/callback",
		AccessToken:  "token-1",
		RefreshToken: "refresh-1",
	}}
}

func newTestClient(store CredentialStore, authURL, apiURL string) *Client {
	return NewClient(Config{
		AuthBaseURL:    authURL,
		APIBaseURL:     apiURL,
		B2BPriceListID: "pl-b2b",
	}, store)
}

func TestExchange_StoresTokens(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/access_token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"grant_type":   r.PostForm.Get("grant_type"),
			"code":         r.PostForm.Get("code"),
			"client_id":    r.PostForm.Get("client_id"),
			"redirect_uri": r.PostForm.Get("redirect_uri"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-new","refresh_token":"rt-new","expires_in":3600}`))
	}))
	defer srv.Close()

	store := connectedStore()
	store.creds.AccessToken = ""
	store.creds.RefreshToken = ""
	client := newTestClient(store, srv.URL, srv.URL)

	require.NoError(t, client.Exchange(context.Background(), "auth-code", ""))

	assert.Equal(t, "authorization_code", gotForm["grant_type"])
	assert.Equal(t, "auth-code", gotForm["code"])
	assert.Equal(t, "cid", gotForm["client_id"])
	assert.Equal(t, "https://panel.example.com/callback", gotForm["redirect_uri"])

	assert.Equal(t, "at-new", store.creds.AccessToken)
	assert.Equal(t, "rt-new", store.creds.RefreshToken)
	assert.NotNil(t, store.creds.TokenUpdatedAt)
}

func TestExchange_WithoutClientConfig(t *testing.T) {
	client := newTestClient(&memoryStore{}, "http://unused", "http://unused")
	err := client.Exchange(context.Background(), "code", "uri")
	assert.True(t, apperror.IsNotConnected(err))
}

func TestDo_NotConnected(t *testing.T) {
	store := connectedStore()
	store.creds.AccessToken = ""
	client := newTestClient(store, "http://unused", "http://unused")

	_, err := client.Do(context.Background(), "users.me", nil)
	assert.True(t, apperror.IsNotConnected(err))
}

func TestDo_RefreshesOnceOn401(t *testing.T) {
	var apiCalls, tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/access_token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		_, _ = w.Write([]byte(`{"access_token":"token-2","refresh_token":"refresh-2","expires_in":3600}`))
	})
	mux.HandleFunc("/users.me", func(w http.ResponseWriter, r *http.Request) {
		apiCalls++
		if r.Header.Get("Authorization") != "Bearer token-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"u-1"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := connectedStore()
	client := newTestClient(store, srv.URL, srv.URL)

	raw, err := client.Do(context.Background(), "users.me", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"id":"u-1"}}`, string(raw))

	assert.Equal(t, 2, apiCalls)
	assert.Equal(t, 1, tokenCalls)
	// rotated refresh token was persisted
	assert.Equal(t, "refresh-2", store.creds.RefreshToken)
	assert.Equal(t, "token-2", store.creds.AccessToken)
}

func TestDo_InvalidGrantClearsTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})
	mux.HandleFunc("/users.me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := connectedStore()
	client := newTestClient(store, srv.URL, srv.URL)

	_, err := client.Do(context.Background(), "users.me", nil)
	assert.True(t, apperror.IsNotConnected(err))
	assert.Empty(t, store.creds.AccessToken)
	assert.Empty(t, store.creds.RefreshToken)
}

func TestDo_UpstreamErrorMapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"title":"bad sku"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(connectedStore(), srv.URL, srv.URL)
	_, err := client.Do(context.Background(), "products.add", map[string]string{})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUpstream, appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Details["upstreamStatus"])
}

func pushableProduct() *catalog.Product {
	p := catalog.NewProduct(catalog.KindSimple, nil)
	p.SKU = "A-1"
	p.Name = "Widget"
	p.PurchaseCost = types.NewMoney(10)
	for i := range p.Prices {
		switch p.Prices[i].PriceList {
		case pricing.PriceListB2B:
			p.Prices[i].FinalPrice = types.NewMoney(25)
		case pricing.PriceListConsumer:
			p.Prices[i].FinalPrice = types.NewMoney(30)
		}
	}
	return p
}

func TestPushProduct_Add(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"tl-123"}}`))
	}))
	defer srv.Close()

	client := newTestClient(connectedStore(), srv.URL, srv.URL)
	externalID, err := client.PushProduct(context.Background(), pushableProduct(), "Widget")
	require.NoError(t, err)
	assert.Equal(t, "tl-123", externalID)

	assert.Equal(t, "/products.add", gotPath)
	assert.Equal(t, "Widget", gotPayload["name"])
	assert.Equal(t, "A-1", gotPayload["code"])

	selling := gotPayload["selling_price"].(map[string]any)
	assert.Equal(t, 30.0, selling["amount"])
	assert.Equal(t, "EUR", selling["currency"])

	purchase := gotPayload["purchase_price"].(map[string]any)
	assert.Equal(t, 10.0, purchase["amount"])

	rows := gotPayload["price_list_prices"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "pl-b2b", row["price_list_id"])
	assert.Equal(t, 25.0, row["price"].(map[string]any)["amount"])
}

func TestPushProduct_UpdateKeepsReference(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := pushableProduct()
	ref := "tl-existing"
	p.ExternalRef = &ref

	client := newTestClient(connectedStore(), srv.URL, srv.URL)
	externalID, err := client.PushProduct(context.Background(), p, "Widget")
	require.NoError(t, err)
	assert.Equal(t, "tl-existing", externalID)
	assert.Equal(t, "/products.update", gotPath)
	assert.Equal(t, "tl-existing", gotPayload["id"])
}

func TestRelay_RequestRejectsForeignURL(t *testing.T) {
	client := newTestClient(connectedStore(), "http://unused", "http://unused")

	raw, err := client.Relay(context.Background(), RelayRequest{
		Action: ActionRequest,
		URL:    "https://evil.example.com/steal",
	})
	require.NoError(t, err)

	var envelope relayError
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, http.StatusForbidden, envelope.UpstreamStatus)
}

func TestRelay_RefreshReturnsErrorEnvelopeOnUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	client := newTestClient(connectedStore(), srv.URL, srv.URL)
	raw, err := client.Relay(context.Background(), RelayRequest{Action: ActionRefresh})
	require.NoError(t, err)

	var envelope relayError
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, http.StatusBadRequest, envelope.UpstreamStatus)
	assert.JSONEq(t, `{"error":"invalid_grant"}`, string(envelope.Error))
}

func TestRelay_ExchangePersistsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"at-x","refresh_token":"rt-x","expires_in":3600}`))
	}))
	defer srv.Close()

	store := connectedStore()
	client := newTestClient(store, srv.URL, srv.URL)

	raw, err := client.Relay(context.Background(), RelayRequest{
		Action: ActionExchange,
		Code:   "auth-code",
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "at-x")
	assert.Equal(t, "at-x", store.creds.AccessToken)
	assert.Equal(t, "rt-x", store.creds.RefreshToken)
}

func TestRelay_UnknownAction(t *testing.T) {
	client := newTestClient(connectedStore(), "http://unused", "http://unused")
	_, err := client.Relay(context.Background(), RelayRequest{Action: "destroy"})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidInput, apperror.GetAppErrorCode(err))
}
