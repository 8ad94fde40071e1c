package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Reservas-api/internal/application/ports"
	"github.com/jhoicas/Reservas-api/internal/domain"
)

func fakePayPal(t *testing.T, captureStatus int) (*httptest.Server, *int32) {
	t.Helper()
	var tokens int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "sec" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		atomic.AddInt32(&tokens, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "ord-1", r.Header.Get("PayPal-Request-Id"))
		var body createOrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CAPTURE", body.Intent)
		assert.Equal(t, "25.50", body.PurchaseUnits[0].Amount.Value)
		assert.Equal(t, "USD", body.PurchaseUnits[0].Amount.CurrencyCode)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "PP-1",
			"status": "CREATED",
			"links": []map[string]string{
				{"rel": "self", "href": "https://paypal.test/self"},
				{"rel": "approve", "href": "https://paypal.test/approve?token=PP-1"},
			},
		})
	})
	mux.HandleFunc("/v2/checkout/orders/PP-1/capture", func(w http.ResponseWriter, r *http.Request) {
		if captureStatus != http.StatusCreated {
			w.WriteHeader(captureStatus)
			_ = json.NewEncoder(w).Encode(map[string]string{"name": "UNPROCESSABLE_ENTITY", "message": "no aprobado"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "PP-1",
			"status": "COMPLETED",
			"purchase_units": []map[string]any{{
				"payments": map[string]any{"captures": []map[string]string{{"id": "CAP-9", "status": "COMPLETED"}}},
			}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokens
}

func newTestClient(baseURL string) *PayPalClient {
	return NewPayPalClient(PayPalConfig{ClientID: "cid", Secret: "sec", BaseURL: baseURL})
}

func TestPayPal_InitiateYCapture(t *testing.T) {
	srv, tokens := fakePayPal(t, http.StatusCreated)
	c := newTestClient(srv.URL)
	ctx := context.Background()

	started, err := c.Initiate(ctx, ports.PaymentRequest{OrderID: "ord-1", UserID: "u1", Amount: decimal.RequireFromString("25.5"), Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "PP-1", started.PaymentID)
	assert.Equal(t, "https://paypal.test/approve?token=PP-1", started.ApprovalURL)

	capture, err := c.Capture(ctx, started.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, "CAP-9", capture.PaymentID)
	assert.Equal(t, int32(1), atomic.LoadInt32(tokens), "el token se reutiliza")
}

func TestPayPal_CaptureRechazada(t *testing.T) {
	srv, _ := fakePayPal(t, http.StatusUnprocessableEntity)
	_, err := newTestClient(srv.URL).Capture(context.Background(), "PP-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, err.Error(), "no aprobado")
}

func TestPayPal_CredencialesInvalidas(t *testing.T) {
	srv, _ := fakePayPal(t, http.StatusCreated)
	c := NewPayPalClient(PayPalConfig{ClientID: "x", Secret: "y", BaseURL: srv.URL})
	_, err := c.Initiate(context.Background(), ports.PaymentRequest{OrderID: "ord-1", Amount: decimal.NewFromInt(1), Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestPayPal_BaseURLPorModo(t *testing.T) {
	assert.Equal(t, sandboxBaseURL, NewPayPalClient(PayPalConfig{}).baseURL)
	assert.Equal(t, liveBaseURL, NewPayPalClient(PayPalConfig{Live: true}).baseURL)
}

func TestDevGateway_CapturaIdempotente(t *testing.T) {
	g := NewDevGateway("http://localhost/aprobar")
	ctx := context.Background()

	started, err := g.Initiate(ctx, ports.PaymentRequest{OrderID: "o1", Amount: decimal.NewFromInt(10), Currency: "USD"})
	require.NoError(t, err)
	assert.Contains(t, started.ApprovalURL, started.PaymentID)

	c1, err := g.Capture(ctx, started.PaymentID)
	require.NoError(t, err)
	c2, err := g.Capture(ctx, started.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, c1.PaymentID, c2.PaymentID)

	_, err = g.Capture(ctx, "desconocido")
	assert.ErrorIs(t, err, domain.ErrUpstream)

	_, err = g.Initiate(ctx, ports.PaymentRequest{OrderID: "o2", Amount: decimal.NewFromInt(-1), Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
