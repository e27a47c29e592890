package feed

import (
	"github.com/Alia5/CONDUIT/apitypes"
	apierror "github.com/Alia5/CONDUIT/internal/server/feed/error"
)

// Handler-facing error constructors. Handlers return *apitypes.ApiError so
// the server can tell protocol errors apart from transport failures.

func ptr(e apitypes.ApiError) *apitypes.ApiError { return &e }

func ErrBadRequest(detail string) *apitypes.ApiError {
	return ptr(apierror.ErrBadRequest(detail))
}

func ErrUnauthorized(detail string) *apitypes.ApiError {
	return ptr(apierror.ErrUnauthorized(detail))
}

func ErrNotFound(detail string) *apitypes.ApiError {
	return ptr(apierror.ErrNotFound(detail))
}

func ErrConflict(detail string) *apitypes.ApiError {
	return ptr(apierror.ErrConflict(detail))
}

func ErrInternal(detail string) *apitypes.ApiError {
	return ptr(apierror.ErrInternal(detail))
}

// WrapError normalizes any error into *apitypes.ApiError, nil staying nil.
func WrapError(err error) *apitypes.ApiError {
	if err == nil {
		return nil
	}
	return ptr(apierror.WrapError(err))
}
