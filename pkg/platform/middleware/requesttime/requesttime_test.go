package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"mipwatch/pkg/requestcontext"
)

func TestMiddlewareStampsTimeAndRequestID(t *testing.T) {
	var (
		now   time.Time
		reqID string
	)
	h := middleware.RequestID(Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now = requestcontext.Now(r.Context())
		reqID = requestcontext.RequestID(r.Context())
	})))

	before := time.Now()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/report", nil))

	assert.False(t, now.Before(before))
	assert.NotEmpty(t, reqID)
}

func TestMiddlewareWithoutRequestID(t *testing.T) {
	var reqID string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID = requestcontext.RequestID(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/report", nil))
	assert.Empty(t, reqID)
}
