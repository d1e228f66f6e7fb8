package lighter

import (
	"errors"
	"strconv"
	"strings"

	"github.com/monkeypipijy/ritmex-bot/internal/core"
)

const (
	apiCodeOK             = 200
	apiCodeRateLimited    = 429
	apiCodeInvalidAuth    = 21101
	apiCodeInvalidNonce   = 21104
	apiCodeNonceTooLow    = 21105
	apiCodeOrderNotFound  = 21110
	apiCodeOrderRejected  = 21120
	apiCodeInsufficient   = 21121
	apiCodeDuplicateOrder = 21122
)

// APIError is an exchange-reported failure, preserved verbatim alongside the
// sentinel kind it classifies into.
type APIError struct {
	Code int
	Msg  string
}

func (e APIError) Error() string {
	return "lighter api error " + strconv.Itoa(e.Code) + ": " + e.Msg
}

var apiCodeKinds = map[int]error{
	apiCodeRateLimited:    core.ErrRateLimited,
	apiCodeInvalidAuth:    core.ErrAuth,
	apiCodeInvalidNonce:   core.ErrNonce,
	apiCodeNonceTooLow:    core.ErrNonce,
	apiCodeOrderNotFound:  core.ErrOrderNotFound,
	apiCodeOrderRejected:  core.ErrOrderRejected,
	apiCodeInsufficient:   core.ErrInsufficientBalance,
	apiCodeDuplicateOrder: core.ErrDuplicateOrder,
}

func wrapAPIError(code int, msg string) error {
	apiErr := APIError{Code: code, Msg: msg}
	if kind, ok := apiCodeKinds[code]; ok {
		return errors.Join(apiErr, kind)
	}
	if kind := classifyByMessage(msg); kind != nil {
		return errors.Join(apiErr, kind)
	}
	return apiErr
}

func classifyByMessage(msg string) error {
	normalized := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case strings.Contains(normalized, "rate limit"), strings.Contains(normalized, "too many requests"):
		return core.ErrRateLimited
	case strings.Contains(normalized, "nonce"):
		return core.ErrNonce
	case strings.Contains(normalized, "auth"), strings.Contains(normalized, "unauthorized"), strings.Contains(normalized, "invalid token"):
		return core.ErrAuth
	case strings.Contains(normalized, "insufficient"):
		return core.ErrInsufficientBalance
	case strings.Contains(normalized, "not found"):
		return core.ErrOrderNotFound
	}
	return nil
}

func AsAPIError(err error) (APIError, bool) {
	var apiErr APIError
	if err == nil || !errors.As(err, &apiErr) {
		return APIError{}, false
	}
	return apiErr, true
}
