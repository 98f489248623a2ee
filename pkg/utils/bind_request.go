package utils

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
)

func BindRequest[T any](c echo.Context) (T, error) {
	var v T

	if err := c.Bind(&v); err != nil {
		return v, httperror.WrapError(http.StatusBadRequest, err)
	}

	return Validate(v)
}

// DataEnvelope is the {data: ...} body accepted by entity write endpoints.
type DataEnvelope[T any] struct {
	Data       T       `json:"data"`
	ImportHash *string `json:"importHash,omitempty"`
}

// BindData binds a {data: ...} envelope and validates its payload.
func BindData[T any](c echo.Context) (DataEnvelope[T], error) {
	env, err := BindEnvelope[T](c)
	if err != nil {
		return env, err
	}

	if _, err := Validate(env.Data); err != nil {
		return env, err
	}

	return env, nil
}

// BindEnvelope binds a {data: ...} envelope without validating its payload.
func BindEnvelope[T any](c echo.Context) (DataEnvelope[T], error) {
	var env DataEnvelope[T]

	if err := c.Bind(&env); err != nil {
		return env, httperror.WrapError(http.StatusBadRequest, err)
	}

	return env, nil
}
