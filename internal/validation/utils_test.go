package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/carledger/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name  *string `json:"name"`
	Color string  `json:"color" validate:"omitempty,oneof=red blue"`
}

func (r *sampleRequest) Validate() error {
	return validator.New().Struct(r)
}

type customRequest struct{}

func (r *customRequest) Validate() error {
	return CustomValidationErrors{{Field: "vin", Message: "unknown vehicle"}}
}

func newContext(body, contentType string) echo.Context {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestBindAndValidate(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := &sampleRequest{}
		require.NoError(t, BindAndValidate(newContext(`{"name":"amag"}`, echo.MIMEApplicationJSON), req))
		require.NotNil(t, req.Name)
		assert.Equal(t, "amag", *req.Name)
	})

	t.Run("empty body", func(t *testing.T) {
		req := &sampleRequest{}
		require.NoError(t, BindAndValidate(newContext("", ""), req))
		assert.Nil(t, req.Name)
	})

	t.Run("wrong field type", func(t *testing.T) {
		err := BindAndValidate(newContext(`{"name":42}`, echo.MIMEApplicationJSON), &sampleRequest{})

		var httpErr *errs.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
		require.Len(t, httpErr.Errors, 1)
		assert.Equal(t, "name", httpErr.Errors[0].Field)
		assert.Equal(t, "must be a string", httpErr.Errors[0].Error)
	})

	t.Run("malformed json", func(t *testing.T) {
		err := BindAndValidate(newContext(`{"name":`, echo.MIMEApplicationJSON), &sampleRequest{})

		var httpErr *errs.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
		assert.NotEmpty(t, httpErr.Message)
	})

	t.Run("tag failure", func(t *testing.T) {
		err := BindAndValidate(newContext(`{"color":"green"}`, echo.MIMEApplicationJSON), &sampleRequest{})

		var httpErr *errs.HTTPError
		require.ErrorAs(t, err, &httpErr)
		require.Len(t, httpErr.Errors, 1)
		assert.Equal(t, "color", httpErr.Errors[0].Field)
		assert.Equal(t, "must be one of: red blue", httpErr.Errors[0].Error)
	})

	t.Run("custom failure", func(t *testing.T) {
		err := BindAndValidate(newContext("", ""), &customRequest{})

		var httpErr *errs.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, []errs.FieldError{{Field: "vin", Error: "unknown vehicle"}}, httpErr.Errors)
	})
}
