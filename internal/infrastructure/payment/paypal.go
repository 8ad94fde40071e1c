// Package payment implementa el puerto PaymentGateway: PayPal Orders v2 y un fake para desarrollo.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/Reservas-api/internal/application/ports"
	"github.com/jhoicas/Reservas-api/internal/domain"
)

var _ ports.PaymentGateway = (*PayPalClient)(nil)

const (
	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
	liveBaseURL    = "https://api-m.paypal.com"
)

// PayPalConfig credenciales y URLs de retorno.
type PayPalConfig struct {
	ClientID  string
	Secret    string
	Live      bool
	BaseURL   string // opcional; sobrescribe sandbox/live (tests)
	ReturnURL string
	CancelURL string
}

// PayPalClient adaptador REST de PayPal (OAuth2 client credentials + Orders v2).
type PayPalClient struct {
	cfg        PayPalConfig
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewPayPalClient(cfg PayPalConfig) *PayPalClient {
	base := cfg.BaseURL
	if base == "" {
		base = sandboxBaseURL
		if cfg.Live {
			base = liveBaseURL
		}
	}
	return &PayPalClient{
		cfg:     cfg,
		baseURL: strings.TrimRight(base, "/"),
		httpClient: &http.Client{
			// El saga impone además un timeout por paso.
			Timeout: 20 * time.Second,
		},
	}
}

// ── Estructuras del protocolo ────────────────────────────────────────────────

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	ReferenceID string `json:"reference_id"`
	CustomID    string `json:"custom_id,omitempty"`
	Amount      amount `json:"amount"`
}

type applicationContext struct {
	ReturnURL  string `json:"return_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
	UserAction string `json:"user_action,omitempty"`
}

type createOrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Links         []link `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type errorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Desc    string `json:"error_description"`
}

// ── Implementación del puerto ────────────────────────────────────────────────

// Initiate crea una orden CAPTURE en PayPal y devuelve el enlace de aprobación.
// PaymentID es el id de la orden PayPal, que luego se usa para capturar.
func (c *PayPalClient) Initiate(ctx context.Context, req ports.PaymentRequest) (ports.PaymentInitiation, error) {
	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: req.OrderID,
			CustomID:    req.UserID,
			Amount:      amount{CurrencyCode: req.Currency, Value: req.Amount.StringFixed(2)},
		}},
		ApplicationContext: applicationContext{
			ReturnURL:  c.cfg.ReturnURL,
			CancelURL:  c.cfg.CancelURL,
			UserAction: "PAY_NOW",
		},
	}
	var out orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, req.OrderID, &out); err != nil {
		return ports.PaymentInitiation{}, err
	}
	approval := ""
	for _, l := range out.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			approval = l.Href
			break
		}
	}
	if out.ID == "" || approval == "" {
		return ports.PaymentInitiation{}, fmt.Errorf("paypal: respuesta sin id o enlace de aprobación: %w", domain.ErrUpstream)
	}
	return ports.PaymentInitiation{PaymentID: out.ID, ApprovalURL: approval, ProviderOrderID: out.ID}, nil
}

// Capture cobra la orden PayPal aprobada. Devuelve el id de la captura.
func (c *PayPalClient) Capture(ctx context.Context, paymentRef string) (ports.PaymentCapture, error) {
	if paymentRef == "" {
		return ports.PaymentCapture{}, fmt.Errorf("paypal: referencia de pago vacía: %w", domain.ErrInvalidInput)
	}
	var out orderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(paymentRef) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, "capture-"+paymentRef, &out); err != nil {
		return ports.PaymentCapture{}, err
	}
	if out.Status != "COMPLETED" {
		return ports.PaymentCapture{}, fmt.Errorf("paypal: captura en estado %q: %w", out.Status, domain.ErrUpstream)
	}
	captureID := out.ID
	for _, pu := range out.PurchaseUnits {
		for _, cp := range pu.Payments.Captures {
			if cp.ID != "" {
				captureID = cp.ID
			}
		}
	}
	return ports.PaymentCapture{PaymentID: captureID}, nil
}

// do envía una petición JSON autenticada. requestID se manda como PayPal-Request-Id para que
// los reintentos sean idempotentes en el proveedor.
func (c *PayPalClient) do(ctx context.Context, method, path string, in any, requestID string, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("paypal: serializar request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("paypal: crear request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: llamada HTTP: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("paypal: leer respuesta: %v: %w", err, domain.ErrUpstream)
	}
	if resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.invalidateToken()
		}
		return fmt.Errorf("paypal: %s %s status %d: %s: %w", method, path, resp.StatusCode, describe(respBody), domain.ErrUpstream)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("paypal: parsear respuesta: %v: %w", err, domain.ErrUpstream)
	}
	return nil
}

// accessToken devuelve el token cacheado o pide uno nuevo con client credentials.
func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal: crear request de token: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal: pedir token: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal: token status %d: %s: %w", resp.StatusCode, describe(body), domain.ErrUpstream)
	}
	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return "", fmt.Errorf("paypal: token inválido: %w", domain.ErrUpstream)
	}
	c.token = tok.AccessToken
	// Margen de un minuto antes del vencimiento.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *PayPalClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func describe(body []byte) string {
	var e errorResponse
	if json.Unmarshal(body, &e) == nil {
		switch {
		case e.Message != "":
			return e.Name + ": " + e.Message
		case e.Desc != "":
			return e.Error + ": " + e.Desc
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
