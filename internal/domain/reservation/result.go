// Package reservation contiene los códigos de resultado del ledger de reservas.
// Los fallos de negocio viajan como resultados estructurados, nunca como error.
package reservation

import "time"

// Reason código estructurado de fallo.
type Reason string

const (
	ReasonProductNotFound     Reason = "product_not_found"
	ReasonInsufficientStock   Reason = "insufficient_stock"
	ReasonReservationNotFound Reason = "reservation_not_found"
	ReasonReservationExpired  Reason = "reservation_expired"
	ReasonCommitFailed        Reason = "commit_failed"
	ReasonInvalidQuantity     Reason = "invalid_quantity"
)

// IndicatesExpiry indica si el motivo significa que la reserva ya no existe
// (expiró o fue reclamada por el TTL).
func (r Reason) IndicatesExpiry() bool {
	return r == ReasonReservationExpired || r == ReasonReservationNotFound
}

// ReserveResult resultado de Reserve.
type ReserveResult struct {
	Success        bool       `json:"success"`
	Reason         Reason     `json:"reason,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	AvailableAfter *int       `json:"availableAfter,omitempty"`
	Available      *int       `json:"available,omitempty"`
	Requested      *int       `json:"requested,omitempty"`
}

// ConfirmResult resultado de Confirm.
type ConfirmResult struct {
	Success           bool   `json:"success"`
	Reason            Reason `json:"reason,omitempty"`
	QuantityCommitted *int   `json:"quantityCommitted,omitempty"`
	RemainingStock    *int   `json:"remainingStock,omitempty"`
}

// ReleaseResult resultado de Release (siempre exitoso salvo error de infraestructura).
type ReleaseResult struct {
	Success bool `json:"success"`
}

// CheckResult consulta no autoritativa de disponibilidad.
type CheckResult struct {
	Available      bool `json:"available"`
	AvailableStock int  `json:"availableStock"`
}

// Fail construye un ReserveResult fallido.
func Fail(reason Reason) ReserveResult {
	return ReserveResult{Reason: reason}
}

// ConfirmFail construye un ConfirmResult fallido.
func ConfirmFail(reason Reason) ConfirmResult {
	return ConfirmResult{Reason: reason}
}

func intPtr(v int) *int { return &v }

// Insufficient construye el fallo insufficient_stock con disponible y solicitado.
func Insufficient(available, requested int) ReserveResult {
	return ReserveResult{
		Reason:    ReasonInsufficientStock,
		Available: intPtr(available),
		Requested: intPtr(requested),
	}
}

// Reserved construye un ReserveResult exitoso.
func Reserved(expiresAt time.Time, availableAfter int) ReserveResult {
	return ReserveResult{
		Success:        true,
		ExpiresAt:      &expiresAt,
		AvailableAfter: intPtr(availableAfter),
	}
}

// Confirmed construye un ConfirmResult exitoso.
func Confirmed(committed, remaining int) ConfirmResult {
	return ConfirmResult{
		Success:           true,
		QuantityCommitted: intPtr(committed),
		RemainingStock:    intPtr(remaining),
	}
}
