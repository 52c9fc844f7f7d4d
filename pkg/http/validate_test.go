package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupRequest struct {
	Symbol string `param:"symbol" validate:"required,max=5,excludesall=/"`
	Limit  int    `query:"limit" default:"5" validate:"gte=1,lte=20"`
}

func runLookup(t *testing.T, target string) (*httptest.ResponseRecorder, *lookupRequest) {
	t.Helper()
	e := echo.New()
	var got *lookupRequest
	e.GET("/lookup/:symbol", func(c echo.Context) error {
		req := &lookupRequest{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		got = req
		return SuccessResponse(c, req)
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec, got
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	rec, got := runLookup(t, "/lookup/AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, 5, got.Limit)
}

func TestReadAndValidateRequestReportsWireNames(t *testing.T) {
	rec, got := runLookup(t, "/lookup/TOOLONG?limit=50")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, got)

	var env struct {
		Status int               `json:"status"`
		Data   []ValidationError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusBadRequest, env.Status)

	fields := map[string]string{}
	for _, v := range env.Data {
		fields[v.Field] = v.Code
	}
	assert.Equal(t, "ERR_MAX", fields["symbol"])
	assert.Equal(t, "ERR_LTE", fields["limit"])
}

func TestAppErrorResponseStatus(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return AppErrorResponse(c, TooManyRequestsError("slow down"))
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_RATE_LIMITED")
}
