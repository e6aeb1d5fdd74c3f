package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deevus/carbon-tui/internal/api"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(api.Config{BaseURL: srv.URL + "/api/", Token: "tok"})
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsBadScheme(t *testing.T) {
	_, err := api.NewClient(api.Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestClient_SendsHeadersAndQuery(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items":      []map[string]any{{"id": "a1", "action": "DEPOSIT", "amount": "12.50"}},
			"page":       2,
			"entry":      10,
			"totalItems": 11,
			"totalPages": 2,
		})
	})

	page, err := api.NewAuditService(c).List(context.Background(), api.ListParams{
		Page: 2, Entry: 10, Field: "createdAt", Sort: "desc",
		Filters: map[string]string{"type": "WALLET", "action": ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/audit", got.URL.Path)
	assert.Equal(t, "2", got.URL.Query().Get("page"))
	assert.Equal(t, "10", got.URL.Query().Get("entry"))
	assert.Equal(t, "createdAt", got.URL.Query().Get("field"))
	assert.Equal(t, "desc", got.URL.Query().Get("sort"))
	assert.Equal(t, "WALLET", got.URL.Query().Get("type"))
	assert.False(t, got.URL.Query().Has("action"))
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	_, err = uuid.Parse(got.Header.Get(api.RequestIDHeader))
	assert.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, api.ActionDeposit, page.Items[0].Action)
	assert.True(t, decimal.RequireFromString("12.5").Equal(page.Items[0].Amount))
	assert.Equal(t, 2, page.TotalPages)
}

func TestClient_SendsJSONBody(t *testing.T) {
	var body api.ChangePasswordRequest
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})

	err := api.NewCustomerService(c).ChangePassword(context.Background(), api.ChangePasswordRequest{
		OldPassword: "Old#1234", NewPassword: "New#1234", ConfirmPassword: "New#1234",
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/api/customer/change-password", path)
	assert.Equal(t, "New#1234", body.NewPassword)
}

func TestClient_EscapesPathIDs(t *testing.T) {
	var raw string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"request":{"id":"a/b","status":"APPROVED"},"creditsIssued":"42.5"}`))
	})

	d, err := api.NewVerificationService(c).Approve(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "/api/verifications/a%2Fb/approve", raw)
	assert.Equal(t, "42.5", d.CreditsIssued.String())
}

func TestClient_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   api.ErrorKind
		code   string
	}{
		{"invalid old password", 400, `{"code":"INVALID_OLD_PASSWORD","message":"old password wrong"}`, api.KindInvalidOldPassword, "INVALID_OLD_PASSWORD"},
		{"nested code", 409, `{"error":{"code":"DUPLICATE_VIN","message":"dup"}}`, api.KindConflict, "DUPLICATE_VIN"},
		{"plain validation", 400, `{"message":"bad"}`, api.KindValidation, ""},
		{"unauthorized", 401, `{}`, api.KindUnauthorized, ""},
		{"forbidden", 403, ``, api.KindForbidden, ""},
		{"not found", 404, `not here`, api.KindNotFound, ""},
		{"rate limited", 429, `{}`, api.KindRateLimited, ""},
		{"server", 503, `{"message":"down"}`, api.KindServer, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			err := api.NewListingService(c).Cancel(context.Background(), "l1")
			require.Error(t, err)

			var apiErr *api.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.kind, api.KindOf(err))
		})
	}
}

func TestClient_MessageFromBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Số dư không đủ","code":"INSUFFICIENT_BALANCE"}`))
	})
	err := api.NewTransactionService(c).UpdateStatus(context.Background(), "t1", api.TransactionCompleted)

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Số dư không đủ", apiErr.Message)
	assert.Equal(t, api.KindValidation, apiErr.Kind)
}

func TestClient_CanceledContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := api.NewWalletService(c).Get(ctx, "o1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, api.KindCanceled, api.KindOf(err))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := api.NewClient(api.Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)
	_, err = api.NewUserService(c).Get(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrTransport))
	assert.Equal(t, api.KindNetwork, api.KindOf(err))
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := api.NewClient(api.Config{BaseURL: srv.URL, RequestsPerSecond: 0.1, Burst: 1})
	require.NoError(t, err)
	svc := api.NewWalletService(c)

	_, err = svc.Get(context.Background(), "o1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = svc.Get(ctx, "o1")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, api.KindInvalidOldPassword, api.Classify(400, "invalid_old_password"))
	assert.Equal(t, api.KindConflict, api.Classify(409, ""))
	assert.Equal(t, api.KindServer, api.Classify(500, ""))
	assert.Equal(t, api.KindUnknown, api.Classify(418, ""))
}

func TestKindOf_Nil(t *testing.T) {
	assert.Equal(t, api.KindUnknown, api.KindOf(nil))
	assert.Equal(t, api.KindUnknown, api.KindOf(errors.New("boom")))
}
