package errutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHelpersPreserveCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Infrastructure("load contract", cause)

	require.True(t, errors.Is(err, cause))
	require.True(t, Is(err, StatusInfrastructure))
	require.Equal(t, "[infrastructure] load contract: connection reset", err.Error())

	wrapped := fmt.Errorf("outer: %w", err)
	require.Equal(t, StatusInfrastructure, Code(wrapped))
}

func TestCodeOfPlainError(t *testing.T) {
	require.Equal(t, StatusUnknown, Code(errors.New("boom")))
	require.False(t, Is(nil, StatusNotFound))
}

func TestJSONHidesCause(t *testing.T) {
	err := Conflict("duplicate", errors.New("pq: duplicate key"),
		WithDetails(Detail{Field: "contract_number", Message: "taken"}))

	var base BaseError
	require.True(t, errors.As(err, &base))

	body := base.JSON().(map[string]interface{})["error"].(map[string]interface{})
	require.Equal(t, "duplicate", body["message"])
	require.Len(t, body["details"], 1)
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[CoreStatus]int{
		StatusNotFound:          http.StatusNotFound,
		StatusInvalidArgument:   http.StatusBadRequest,
		StatusInvalidReference:  http.StatusUnprocessableEntity,
		StatusInvalidTransition: http.StatusConflict,
		StatusInvalidState:      http.StatusConflict,
		StatusConflict:          http.StatusConflict,
		StatusInfrastructure:    http.StatusServiceUnavailable,
		StatusUnauthorized:      http.StatusUnauthorized,
		StatusForbidden:         http.StatusForbidden,
		StatusUnknown:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestToGRPCError(t *testing.T) {
	require.NoError(t, ToGRPCError(nil))

	st, ok := status.FromError(ToGRPCError(InvalidTransition("illegal", nil)))
	require.True(t, ok)
	require.Equal(t, codes.FailedPrecondition, st.Code())
	require.Equal(t, "illegal", st.Message())

	st, _ = status.FromError(ToGRPCError(context.Canceled))
	require.Equal(t, codes.Canceled, st.Code())

	st, _ = status.FromError(ToGRPCError(errors.New("boom")))
	require.Equal(t, codes.Internal, st.Code())
}
