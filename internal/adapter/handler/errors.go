package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/event-pos/internal/auth"
	"github.com/rl1809/event-pos/internal/core/domain"
)

// httpStatus maps an operation error to a status code and the message shown
// to the user. Unclassified errors keep their raw message.
func httpStatus(err error) (int, string) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Message
	}

	var cerr *domain.ConstraintError
	if errors.As(err, &cerr) {
		switch cerr.Kind {
		case domain.ConstraintPermission:
			return http.StatusForbidden, cerr.Message
		case domain.ConstraintDuplicate:
			return http.StatusConflict, cerr.Message
		default:
			return http.StatusBadRequest, cerr.Message
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid login credentials"
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, domain.ErrUnauthenticated.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, domain.ErrForbidden.Error()
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrInvalidLineQuantity):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrCommitInProgress):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrPriceBelowCost):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrDashboardUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// grpcError converts an operation error to a gRPC status error.
func grpcError(err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return status.Error(codes.InvalidArgument, verr.Message)
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, domain.ErrUnauthenticated.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, domain.ErrForbidden.Error())
	case errors.Is(err, domain.ErrDashboardUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Errorf(codes.Internal, "internal error: %v", err)
	}
}
