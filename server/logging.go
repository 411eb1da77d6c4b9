// ABOUTME: Access-log middleware for the lint API: tags each request with an id and logs its outcome.
// ABOUTME: The id comes from X-Request-ID or a fresh uuid and is echoed on the response.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds a client-supplied id; longer ones are replaced.
const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestIDFrom returns the request id stored on ctx by accessLog.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// accessLog assigns the request id, then logs one line once the handler returns.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Printf("api %s %s status=%d bytes=%d took=%s request_id=%s",
			r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start).Round(time.Microsecond), id)
	})
}
