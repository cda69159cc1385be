package service

import "errors"

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidStep       = errors.New("operation not allowed at this step")
	ErrNoAddressSelected = errors.New("no address selected")
	ErrAddressNotFound   = errors.New("address not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOrderNotFound     = errors.New("order not found")
	ErrPersistence       = errors.New("order persistence failed")
	ErrBadSignature      = errors.New("callback signature mismatch")
	ErrForeignOrigin     = errors.New("relay message from foreign origin")
)
