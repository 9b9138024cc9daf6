package application

import (
	"context"
	"errors"

	"github.com/wms-platform/warehouse-core/internal/domain"
	apperrors "github.com/wms-platform/warehouse-core/pkg/errors"
	"github.com/wms-platform/warehouse-core/pkg/schema"
)

// MapError translates a domain or infrastructure error into an AppError.
// Unknown errors become internal errors and keep the cause for logging.
func MapError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var failure *schema.ValidationFailure
	switch {
	case errors.As(err, &failure):
		return apperrors.ErrValidationWithFields("metadata does not match schema", failure.Fields).Wrap(err)
	case errors.Is(err, domain.ErrInvalidAdjustment):
		return apperrors.ErrInvalidAdjustment(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidArgument):
		return apperrors.ErrValidation(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrInsufficientAvailable), errors.Is(err, domain.ErrInsufficientReserved):
		return apperrors.ErrInsufficientStock(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrInvalidState):
		return apperrors.ErrInvalidState(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrConcurrentModification):
		return apperrors.ErrConcurrentModification(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.ErrNotFound(err.Error()).Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrTimeout("request").Wrap(err)
	case errors.Is(err, context.Canceled):
		return apperrors.ErrServiceUnavailable("request").Wrap(err)
	}
	return apperrors.ErrInternal("").Wrap(err)
}
