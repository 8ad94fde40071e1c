// Package order implementa el saga del ciclo de vida de la orden:
// reserva de cada línea, creación de la orden, pago y confirmación del inventario,
// con compensación dirigida (Release o Restore) cuando un paso falla.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Reservas-api/internal/application/ports"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
	rsv "github.com/jhoicas/Reservas-api/internal/domain/reservation"
)

const (
	DefaultStepTimeout = 10 * time.Second
	defaultListLimit   = 20
	maxListLimit       = 100
)

// Config parámetros del saga.
type Config struct {
	// StepTimeout límite de cada llamada externa (gateway, pago, repositorio).
	StepTimeout time.Duration
	Clock       func() time.Time
	NewID       func() string
}

// CreateOrderInput datos del checkout.
type CreateOrderInput struct {
	UserID   string
	CartID   string
	Cart     entity.OrderData
	UserData json.RawMessage
}

// PaymentSession resultado de InitiatePayment.
type PaymentSession struct {
	OrderID         string `json:"order_id"`
	PaymentID       string `json:"payment_id"`
	ApprovalURL     string `json:"approval_url"`
	ProviderOrderID string `json:"provider_order_id"`
}

// Saga orquesta las órdenes sobre el gateway de reservas y el proveedor de pagos.
type Saga struct {
	repo         repository.OrderRepository
	reservations ReservationGateway
	payments     ports.PaymentGateway
	events       ports.EventPublisher
	validate     *validator.Validate
	cfg          Config
	log          zerolog.Logger
}

// NewSaga construye el saga. events puede ser nil (no se publican eventos).
func NewSaga(
	repo repository.OrderRepository,
	reservations ReservationGateway,
	payments ports.PaymentGateway,
	events ports.EventPublisher,
	cfg Config,
	log zerolog.Logger,
) *Saga {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return uuid.New().String() }
	}
	return &Saga{
		repo:         repo,
		reservations: reservations,
		payments:     payments,
		events:       events,
		validate:     newValidator(),
		cfg:          cfg,
		log:          log.With().Str("component", "order_saga").Logger(),
	}
}

// step deriva el contexto de un paso con su timeout.
func (s *Saga) step(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StepTimeout)
}

// compensation deriva un contexto que sobrevive a la cancelación del caller.
func (s *Saga) compensation(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StepTimeout)
}

func track(operation string, start time.Time, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = outcomeOf(*err)
	}
	sagaTotal.WithLabelValues(operation, outcome).Inc()
	sagaDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrCommitConflict):
		return "commit_failed"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorized):
		return "forbidden"
	case errors.Is(err, domain.ErrUpstream):
		return "upstream"
	default:
		return "error"
	}
}

// upstream garantiza que err se clasifique como fallo de infraestructura.
func upstream(err error) error {
	if errors.Is(err, domain.ErrUpstream) || errors.Is(err, domain.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%v: %w", err, domain.ErrUpstream)
}

// reserveFailure traduce el motivo de un Reserve fallido a su error de dominio.
func reserveFailure(reason rsv.Reason) error {
	switch reason {
	case rsv.ReasonInsufficientStock:
		return domain.ErrInsufficientStock
	case rsv.ReasonProductNotFound:
		return domain.ErrNotFound
	case rsv.ReasonInvalidQuantity:
		return domain.ErrInvalidInput
	default:
		return domain.ErrUpstream
	}
}

// ── CreateOrder ──────────────────────────────────────────────────────────────

// CreateOrder reserva todas las líneas del carrito bajo un nuevo id de orden y,
// solo si todas quedaron reservadas, persiste la orden en pending.
// Ante cualquier fallo libera lo reservado y devuelve un *SagaError con el motivo original.
func (s *Saga) CreateOrder(ctx context.Context, in CreateOrderInput) (order *entity.Order, err error) {
	defer track("create", time.Now(), &err)

	if in.UserID == "" {
		return nil, &SagaError{Step: StepValidate, Err: domain.ErrUnauthorized}
	}
	if err := validateCart(s.validate, &in.Cart); err != nil {
		return nil, &SagaError{Step: StepValidate, Err: err}
	}

	orderID := s.cfg.NewID()
	log := s.log.With().Str("order_id", orderID).Str("user_id", in.UserID).Logger()

	reserved := make([]entity.OrderProduct, 0, len(in.Cart.Products))
	for _, p := range in.Cart.Products {
		sctx, cancel := s.step(ctx)
		res, rerr := s.reservations.Reserve(sctx, p.ProductID, p.WarehouseID, orderID, p.Quantity, in.UserID)
		cancel()
		if rerr != nil || !res.Success {
			s.releaseAll(ctx, orderID, in.UserID, reserved, log)
			serr := &SagaError{OrderID: orderID, Step: StepReserve, ProductID: p.ProductID, WarehouseID: p.WarehouseID}
			if rerr != nil {
				serr.Err = upstream(rerr)
			} else {
				serr.Reason = res.Reason
				serr.Err = reserveFailure(res.Reason)
			}
			log.Info().Str("product_id", p.ProductID).Str("reason", string(serr.Reason)).Msg("reserva rechazada, orden no creada")
			return nil, serr
		}
		reserved = append(reserved, p)
	}

	now := s.cfg.Clock()
	order = &entity.Order{
		ID:          orderID,
		UserID:      in.UserID,
		CartID:      in.CartID,
		OrderData:   in.Cart,
		UserData:    in.UserData,
		Status:      entity.OrderStatusPending,
		TotalAmount: in.Cart.Costs.Total,
		Currency:    currencyOf(&in.Cart),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	sctx, cancel := s.step(ctx)
	err = s.repo.Create(sctx, order)
	cancel()
	if err != nil {
		s.releaseAll(ctx, orderID, in.UserID, reserved, log)
		log.Error().Err(err).Msg("no se pudo persistir la orden, reservas liberadas")
		return nil, &SagaError{OrderID: orderID, Step: StepPersist, Err: upstream(err)}
	}

	log.Info().Int("items", len(reserved)).Str("total", order.TotalAmount.String()).Msg("orden creada")
	s.publish(ctx, ports.EventOrderCreated, order, "")
	return order, nil
}

// releaseAll compensa reservas del paso de reserva. Los fallos solo se registran: el TTL las recupera.
func (s *Saga) releaseAll(ctx context.Context, orderID, userID string, items []entity.OrderProduct, log zerolog.Logger) {
	for _, p := range items {
		cctx, cancel := s.compensation(ctx)
		_, err := s.reservations.Release(cctx, p.ProductID, p.WarehouseID, orderID, userID)
		cancel()
		if err != nil {
			compensationsTotal.WithLabelValues("release", "error").Inc()
			log.Warn().Err(err).Str("product_id", p.ProductID).Str("warehouse_id", p.WarehouseID).Msg("no se pudo liberar la reserva")
			continue
		}
		compensationsTotal.WithLabelValues("release", "ok").Inc()
	}
}

// restoreAll devuelve al ledger lo confirmado en esta pasada.
func (s *Saga) restoreAll(ctx context.Context, items []entity.OrderProduct, log zerolog.Logger) {
	for _, p := range items {
		cctx, cancel := s.compensation(ctx)
		_, err := s.reservations.Restore(cctx, p.ProductID, p.WarehouseID, p.Quantity)
		cancel()
		if err != nil {
			compensationsTotal.WithLabelValues("restore", "error").Inc()
			log.Error().Err(err).
				Str("product_id", p.ProductID).
				Str("warehouse_id", p.WarehouseID).
				Int("quantity", p.Quantity).
				Msg("no se pudo restituir stock confirmado, requiere ajuste manual")
			continue
		}
		compensationsTotal.WithLabelValues("restore", "ok").Inc()
	}
}

// ── Lectura ──────────────────────────────────────────────────────────────────

// load lee la orden y verifica que pertenezca a userID.
func (s *Saga) load(ctx context.Context, orderID, userID string) (*entity.Order, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidInput
	}
	sctx, cancel := s.step(ctx)
	defer cancel()
	order, err := s.repo.GetByID(sctx, orderID)
	if err != nil {
		return nil, upstream(err)
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if !order.OwnedBy(userID) {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

// GetOrder devuelve la orden si pertenece a userID.
func (s *Saga) GetOrder(ctx context.Context, orderID, userID string) (*entity.Order, error) {
	return s.load(ctx, orderID, userID)
}

// ListOrders órdenes del usuario, más recientes primero.
func (s *Saga) ListOrders(ctx context.Context, userID string, limit, offset int) ([]*entity.Order, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	sctx, cancel := s.step(ctx)
	defer cancel()
	list, err := s.repo.ListByUser(sctx, userID, limit, offset)
	if err != nil {
		return nil, upstream(err)
	}
	return list, nil
}

// ── Transiciones ─────────────────────────────────────────────────────────────

// transition cambia el estado con compare-and-set sobre el estado actual.
func (s *Saga) transition(ctx context.Context, order *entity.Order, to string) error {
	from := order.Status
	if !entity.CanTransition(from, to) {
		return fmt.Errorf("transición %s -> %s: %w", from, to, domain.ErrConflict)
	}
	order.Status = to
	order.UpdatedAt = s.cfg.Clock()
	sctx, cancel := s.step(ctx)
	defer cancel()
	if err := s.repo.UpdateStatus(sctx, order, from); err != nil {
		order.Status = from
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("transición %s -> %s: %w", from, to, err)
		}
		return upstream(err)
	}
	return nil
}

func (s *Saga) publish(ctx context.Context, eventType string, order *entity.Order, reason string) {
	if s.events == nil {
		return
	}
	evt := ports.OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		PaymentID:   order.PaymentID,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		Reason:      reason,
		OccurredAt:  s.cfg.Clock(),
	}
	cctx, cancel := s.compensation(ctx)
	defer cancel()
	if err := s.events.Publish(cctx, evt); err != nil {
		s.log.Warn().Err(err).Str("order_id", order.ID).Str("event", eventType).Msg("no se pudo publicar el evento")
	}
}

// ── InitiatePayment ──────────────────────────────────────────────────────────

// InitiatePayment abre el cobro de una orden pending y la pasa a payment_initiated.
func (s *Saga) InitiatePayment(ctx context.Context, orderID, userID string) (session *PaymentSession, err error) {
	defer track("initiate_payment", time.Now(), &err)

	order, err := s.load(ctx, orderID, userID)
	if err != nil {
		return nil, &SagaError{OrderID: orderID, Step: StepInitiatePayment, Err: err}
	}
	if order.Status != entity.OrderStatusPending {
		return nil, &SagaError{OrderID: orderID, Step: StepInitiatePayment,
			Err: fmt.Errorf("estado %s: %w", order.Status, domain.ErrConflict)}
	}

	sctx, cancel := s.step(ctx)
	started, err := s.payments.Initiate(sctx, ports.PaymentRequest{
		OrderID:  order.ID,
		UserID:   order.UserID,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
	})
	cancel()
	if err != nil {
		s.log.Warn().Err(err).Str("order_id", orderID).Msg("no se pudo iniciar el pago")
		return nil, &SagaError{OrderID: orderID, Step: StepInitiatePayment, Err: upstream(err)}
	}

	order.PaymentID = started.PaymentID
	if err := s.transition(ctx, order, entity.OrderStatusPaymentInitiated); err != nil {
		return nil, &SagaError{OrderID: orderID, Step: StepInitiatePayment, Err: err}
	}

	s.log.Info().Str("order_id", orderID).Str("payment_id", started.PaymentID).Msg("pago iniciado")
	s.publish(ctx, ports.EventOrderPaymentInitiated, order, "")
	return &PaymentSession{
		OrderID:         order.ID,
		PaymentID:       started.PaymentID,
		ApprovalURL:     started.ApprovalURL,
		ProviderOrderID: started.ProviderOrderID,
	}, nil
}

// ── ConfirmOrder ─────────────────────────────────────────────────────────────

// ConfirmOrder captura el pago y consolida cada línea en el ledger.
// Si una línea falla restituye lo ya consolidado y deja la orden en expired
// (la reserva venció con el pago ya capturado) o failed.
// paymentRef vacío usa el payment_id guardado al iniciar el pago; uno distinto se rechaza.
func (s *Saga) ConfirmOrder(ctx context.Context, orderID, userID, paymentRef string) (order *entity.Order, err error) {
	defer track("confirm", time.Now(), &err)

	order, err = s.load(ctx, orderID, userID)
	if err != nil {
		return nil, &SagaError{OrderID: orderID, Step: StepConfirm, Err: err}
	}
	if order.Status != entity.OrderStatusPaymentInitiated {
		return nil, &SagaError{OrderID: orderID, Step: StepConfirm,
			Err: fmt.Errorf("estado %s: %w", order.Status, domain.ErrConflict)}
	}
	switch {
	case paymentRef == "":
		paymentRef = order.PaymentID
	case order.PaymentID != "" && paymentRef != order.PaymentID:
		s.log.Warn().Str("order_id", orderID).Str("payment_ref", paymentRef).Msg("referencia de pago de otra orden")
		return nil, &SagaError{OrderID: orderID, Step: StepCapture,
			Err: fmt.Errorf("el pago %s no pertenece a la orden: %w", paymentRef, domain.ErrInvalidInput)}
	}
	log := s.log.With().Str("order_id", orderID).Str("payment_ref", paymentRef).Logger()

	sctx, cancel := s.step(ctx)
	capture, err := s.payments.Capture(sctx, paymentRef)
	cancel()
	if err != nil {
		// La orden queda en payment_initiated: se puede reintentar mientras duren las reservas.
		log.Warn().Err(err).Msg("captura del pago fallida")
		return nil, &SagaError{OrderID: orderID, Step: StepCapture, Err: upstream(err)}
	}
	if capture.PaymentID != "" {
		order.PaymentID = capture.PaymentID
	}

	confirmed := make([]entity.OrderProduct, 0, len(order.OrderData.Products))
	for _, p := range order.OrderData.Products {
		sctx, cancel := s.step(ctx)
		res, cerr := s.reservations.Confirm(sctx, p.ProductID, p.WarehouseID, order.ID, order.UserID)
		cancel()
		if cerr == nil && res.Success {
			confirmed = append(confirmed, p)
			continue
		}

		serr := &SagaError{OrderID: orderID, Step: StepConfirm, ProductID: p.ProductID, WarehouseID: p.WarehouseID}
		terminal, event := entity.OrderStatusFailed, ports.EventOrderFailed
		switch {
		case cerr != nil:
			serr.Err = upstream(cerr)
		case res.Reason.IndicatesExpiry():
			terminal, event = entity.OrderStatusExpired, ports.EventOrderExpired
			serr.Reason = res.Reason
			serr.Err = domain.ErrExpired
		default:
			serr.Reason = res.Reason
			serr.Err = domain.ErrCommitConflict
		}

		s.restoreAll(ctx, confirmed, log)
		tctx, tcancel := s.compensation(ctx)
		if terr := s.transition(tctx, order, terminal); terr != nil {
			log.Error().Err(terr).Str("status", terminal).Msg("no se pudo registrar el estado terminal")
		} else {
			s.publish(ctx, event, order, string(serr.Reason))
		}
		tcancel()
		log.Warn().
			Str("product_id", p.ProductID).
			Str("reason", string(serr.Reason)).
			Str("status", order.Status).
			Int("restored", len(confirmed)).
			Msg("confirmación de inventario fallida")
		return nil, serr
	}

	if err := s.transition(ctx, order, entity.OrderStatusConfirmed); err != nil {
		// Otro flujo cambió la orden mientras se consolidaba: devolver el stock.
		s.restoreAll(ctx, confirmed, log)
		log.Error().Err(err).Msg("orden modificada durante la confirmación, stock restituido")
		return nil, &SagaError{OrderID: orderID, Step: StepConfirm, Err: err}
	}

	log.Info().Str("payment_id", order.PaymentID).Msg("orden confirmada")
	s.publish(ctx, ports.EventOrderConfirmed, order, "")
	return order, nil
}

// ── CancelOrder ──────────────────────────────────────────────────────────────

// CancelOrder cancela una orden pending o payment_initiated del usuario y libera sus reservas.
func (s *Saga) CancelOrder(ctx context.Context, orderID, userID string) (order *entity.Order, err error) {
	defer track("cancel", time.Now(), &err)

	order, err = s.load(ctx, orderID, userID)
	if err != nil {
		return nil, &SagaError{OrderID: orderID, Step: StepCancel, Err: err}
	}
	if !entity.CanTransition(order.Status, entity.OrderStatusCancelled) {
		return nil, &SagaError{OrderID: orderID, Step: StepCancel,
			Err: fmt.Errorf("no se puede cancelar una orden en estado %s: %w", order.Status, domain.ErrConflict)}
	}

	// Primero el estado: un ConfirmOrder concurrente pierde el compare-and-set y restituye.
	if err := s.transition(ctx, order, entity.OrderStatusCancelled); err != nil {
		return nil, &SagaError{OrderID: orderID, Step: StepCancel, Err: err}
	}

	log := s.log.With().Str("order_id", orderID).Logger()
	s.releaseAll(ctx, order.ID, order.UserID, order.OrderData.Products, log)
	log.Info().Msg("orden cancelada")
	s.publish(ctx, ports.EventOrderCancelled, order, "")
	return order, nil
}
