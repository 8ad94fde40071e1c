package order

import (
	"fmt"
	"strings"

	rsv "github.com/jhoicas/Reservas-api/internal/domain/reservation"
)

// Step paso del saga donde ocurrió el fallo.
type Step string

const (
	StepValidate        Step = "validate"
	StepReserve         Step = "reserve"
	StepPersist         Step = "persist"
	StepInitiatePayment Step = "initiate_payment"
	StepCapture         Step = "capture"
	StepConfirm         Step = "confirm"
	StepCancel          Step = "cancel"
)

// SagaError fallo de un paso del saga. Err es (o envuelve) un error de domain,
// así que los callers clasifican con errors.Is.
type SagaError struct {
	OrderID     string
	Step        Step
	Reason      rsv.Reason
	ProductID   string
	WarehouseID string
	Err         error
}

func (e *SagaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "orden %s: paso %s", e.OrderID, e.Step)
	if e.ProductID != "" {
		fmt.Fprintf(&b, " (producto %s, bodega %s)", e.ProductID, e.WarehouseID)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *SagaError) Unwrap() error { return e.Err }
