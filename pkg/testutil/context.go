package testutil

import (
	"net/http"

	"mipwatch/pkg/requestcontext"
)

// WithRequestID attaches a request ID as the requesttime middleware does after
// chi assigns one.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
