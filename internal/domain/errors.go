package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrExpired           = errors.New("reserva expirada")
	ErrCommitConflict    = errors.New("no se pudo confirmar el stock en el ledger")
	ErrUpstream          = errors.New("servicio externo no disponible")
)
