package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wms-platform/box-tracking-service/internal/domain"
	apperrors "github.com/wms-platform/box-tracking-service/pkg/errors"
	"github.com/wms-platform/box-tracking-service/pkg/resilience"
)

// Error codes specific to the scan floor
const (
	CodeUnknownContext   = "UNKNOWN_CONTEXT"
	CodeQuantityMismatch = "QUANTITY_MISMATCH"
	CodeFlowViolation    = "FLOW_VIOLATION"
)

// toAppError maps domain and infrastructure errors to their HTTP-facing form
func toAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var mismatch *domain.MismatchError
	var flow *domain.FlowError

	switch {
	case errors.As(err, &mismatch):
		return apperrors.NewAppError(CodeQuantityMismatch, mismatch.Error(), http.StatusUnprocessableEntity).
			WithDetail("expected", fmt.Sprint(mismatch.Expected)).
			WithDetail("actual", fmt.Sprint(mismatch.Actual)).
			Wrap(err)
	case errors.As(err, &flow):
		appErr := apperrors.NewAppError(CodeFlowViolation, flow.Error(), http.StatusUnprocessableEntity).
			WithDetail("series", flow.Series).
			WithDetail("from", flow.From).
			WithDetail("to", flow.To)
		if flow.Expected != "" {
			appErr = appErr.WithDetail("expectedStation", flow.Expected)
		}
		return appErr.Wrap(err)
	case errors.Is(err, domain.ErrUnknownContext):
		return apperrors.NewAppError(CodeUnknownContext, err.Error(), http.StatusUnprocessableEntity).Wrap(err)
	case errors.Is(err, domain.ErrMalformedBarcode),
		errors.Is(err, domain.ErrNoQuantity),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidCapacity),
		errors.Is(err, domain.ErrTooManyBoxes),
		errors.Is(err, domain.ErrBoxOverflow),
		errors.Is(err, domain.ErrUnknownSeries),
		errors.Is(err, domain.ErrUnknownModel),
		errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrFieldTooWide),
		errors.Is(err, domain.ErrUnknownStation):
		return apperrors.ErrValidation(err.Error()).Wrap(err)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ErrServiceUnavailable("scan ledger").Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrTimeout("scan ledger").Wrap(err)
	default:
		return apperrors.MapDomainError(err)
	}
}
