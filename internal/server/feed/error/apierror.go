// Package apierror builds the problem+json errors the feed protocol returns.
package apierror

import "github.com/Alia5/CONDUIT/apitypes"

func problem(status int, title, detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: status, Title: title, Detail: detail}
}

func ErrBadRequest(detail string) apitypes.ApiError   { return problem(400, "Bad Request", detail) }
func ErrUnauthorized(detail string) apitypes.ApiError { return problem(401, "Unauthorized", detail) }
func ErrNotFound(detail string) apitypes.ApiError     { return problem(404, "Not Found", detail) }
func ErrConflict(detail string) apitypes.ApiError     { return problem(409, "Conflict", detail) }
func ErrInternal(detail string) apitypes.ApiError {
	return problem(500, "Internal Server Error", detail)
}

// WrapError normalizes any error into apitypes.ApiError.
func WrapError(err error) apitypes.ApiError {
	switch e := err.(type) {
	case *apitypes.ApiError:
		return *e
	case apitypes.ApiError:
		return e
	default:
		return ErrInternal(err.Error())
	}
}
