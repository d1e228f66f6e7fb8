package core

import "errors"

var (
	// ErrFormat indicates a malformed decimal string crossed the scaling boundary.
	ErrFormat = errors.New("malformed decimal")
	// ErrRange indicates a scaled value does not fit the requested integer width.
	ErrRange = errors.New("value out of range")
	// ErrRateLimited indicates the exchange rejected a request for pacing reasons.
	ErrRateLimited = errors.New("rate limited")
	// ErrNonce indicates a signed submission failed before or during signing.
	ErrNonce = errors.New("nonce rejected")
	// ErrMarketNotFound indicates the configured market is unknown to the exchange.
	ErrMarketNotFound = errors.New("market not found")
	// ErrOrderNotFound indicates the order does not exist on exchange.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderRejected indicates the order was rejected by exchange.
	ErrOrderRejected = errors.New("order rejected")
	// ErrDuplicateOrder indicates the client order id has already been accepted before.
	ErrDuplicateOrder = errors.New("duplicate order")
	// ErrInsufficientBalance indicates the exchange rejected the action due to insufficient funds.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrAuth indicates the exchange rejected our credentials or auth token.
	ErrAuth = errors.New("authentication rejected")
)
