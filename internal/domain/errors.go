package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Las operaciones del núcleo los envuelven con fmt.Errorf("%w: motivo", Err...)
// para que el caller distinga la clase con errors.Is y muestre el motivo.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrConflict          = errors.New("conflict with current state")
	ErrDuplicate         = errors.New("duplicate resource")
)
