package api

import (
	"errors"
	"fmt"
	"strings"

	"piron-pools-go/internal/chain"
	"piron-pools-go/internal/listener"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnauthorized      = errors.New("authentication required")
	ErrForbidden         = errors.New("insufficient permissions")
	ErrInvalidInput      = errors.New("invalid input")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrBootstrapClosed   = errors.New("admin bootstrap is closed")
	ErrDepositsPaused    = errors.New("deposits are paused")
	ErrChainUnavailable  = errors.New("chain client not configured")
)

// ErrSelfDelete is returned for any admin deleting their own record.
var ErrSelfDelete = fmt.Errorf("%w: admins cannot delete themselves", ErrForbidden)

// invalidInput wraps a message as ErrInvalidInput.
func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// translateReconcileErr maps reconciler rejections that stem from the request to
// ErrInvalidInput; chain and store errors pass through unchanged.
func translateReconcileErr(err error) error {
	switch {
	case errors.Is(err, listener.ErrInvalidTxHash),
		errors.Is(err, listener.ErrInvalidAmount),
		errors.Is(err, listener.ErrEpochNotEnded),
		errors.Is(err, listener.ErrEpochClosed),
		errors.Is(err, listener.ErrWalletRequired),
		errors.Is(err, listener.ErrNotPoolDeposit),
		errors.Is(err, chain.ErrNotPoolDeposit):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, listener.ErrSenderMismatch):
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	default:
		return err
	}
}

// FormatValidationError turns validator errors into one message per field.
func FormatValidationError(err error) []string {
	var errs []string

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			field := e.Field()

			switch e.Tag() {
			case "required":
				errs = append(errs, fmt.Sprintf("%s is required", field))
			case "email":
				errs = append(errs, fmt.Sprintf("%s must be a valid email", field))
			case "eth_addr":
				errs = append(errs, fmt.Sprintf("%s must be a 0x-prefixed 20 byte address", field))
			case "numeric":
				errs = append(errs, fmt.Sprintf("%s must be a number", field))
			case "oneof":
				errs = append(errs, fmt.Sprintf("%s must be one of [%s]", field, e.Param()))
			case "min":
				errs = append(errs, fmt.Sprintf("%s must have minimum length %s", field, e.Param()))
			case "max":
				errs = append(errs, fmt.Sprintf("%s must have maximum length %s", field, e.Param()))
			case "gtfield":
				errs = append(errs, fmt.Sprintf("%s must be after %s", field, e.Param()))
			default:
				errs = append(errs, fmt.Sprintf("%s is invalid (%s)", field, e.Tag()))
			}
		}
	}
	return errs
}

func (s *Service) validateStruct(v any) error {
	if err := s.validate.Struct(v); err != nil {
		msgs := FormatValidationError(err)
		if len(msgs) == 0 {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
	}
	return nil
}
