// Package apperr carries the mutation error taxonomy shared by handlers and
// repositories. Errors are gRPC status values so the class of a failure
// survives wrapping and maps mechanically onto HTTP responses.
package apperr

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// PermissionDenied marks a caller acting outside their role or ownership
// (editing another user's message, non-admin group management).
func PermissionDenied(msg string) error {
	return status.Error(codes.PermissionDenied, msg)
}

// InvalidArgument marks a structurally bad request (poll with too few
// options, empty group name).
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// InvalidOperation marks a request that is well-formed but not allowed in
// the current state (kicking an admin, double-ending a call).
func InvalidOperation(msg string) error {
	return status.Error(codes.FailedPrecondition, msg)
}

// NotFound marks a missing record where silence is not the right answer.
func NotFound(msg string) error {
	return status.Error(codes.NotFound, msg)
}

// Unavailable marks a transport or store failure; callers may retry.
func Unavailable(msg string) error {
	return status.Error(codes.Unavailable, msg)
}

// Code extracts the taxonomy class of err, codes.Unknown for plain errors.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Unknown
}

// HTTPStatus maps a taxonomy error onto the HTTP status handlers respond with.
func HTTPStatus(err error) int {
	switch Code(err) {
	case codes.OK:
		return http.StatusOK
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the human-readable text of a taxonomy error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if s, ok := status.FromError(err); ok {
		return s.Message()
	}
	return err.Error()
}
