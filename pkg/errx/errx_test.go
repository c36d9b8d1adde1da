package errx_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Abraxas-365/escolar/pkg/errx"
)

var (
	testRegistry = errx.NewRegistry("TEST")
	codeBroken   = testRegistry.Register("BROKEN", errx.TypeExternal, http.StatusBadGateway, "engine broke")
)

func TestRegistry_NewCarriesCode(t *testing.T) {
	err := testRegistry.NewWithCause(codeBroken, errors.New("dial tcp"))

	assert.Equal(t, "TEST_BROKEN", err.Code)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
	assert.Equal(t, "[TEST_BROKEN] engine broke: dial tcp", err.Error())
	assert.True(t, errx.IsCode(err, codeBroken))
}

func TestWrap_KeepsClassification(t *testing.T) {
	inner := testRegistry.New(codeBroken).WithDetail("engine", "flask")
	wrapped := errx.Wrap(inner, "recognize", errx.TypeInternal)

	assert.Equal(t, "TEST_BROKEN", wrapped.Code)
	assert.Equal(t, errx.TypeExternal, wrapped.Type)
	assert.Equal(t, "flask", wrapped.Details["engine"])
	assert.True(t, errx.IsCode(fmt.Errorf("outer: %w", wrapped), codeBroken))
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, errx.Wrap(nil, "x", errx.TypeInternal))
	assert.Nil(t, errx.From(nil))
}

func TestFrom_ForeignErrorIsInternal(t *testing.T) {
	err := errx.From(errors.New("boom"))

	assert.Equal(t, errx.TypeInternal, err.Type)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.False(t, errx.IsCode(err, codeBroken))
}

func TestToHTTPResponse(t *testing.T) {
	resp := errx.Validation("bad image").ToHTTPResponse()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", resp.Type)
	assert.Equal(t, "bad image", resp.Message)
}
