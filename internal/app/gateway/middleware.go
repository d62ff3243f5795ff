package gateway

import (
	"bufio"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/metrics"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/util"
)

// requestContext stores the request id and client ip for log correlation.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := util.WithRequestID(r.Context(), r.Header.Get("X-Request-ID"))
		if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
			ctx = util.WithClientIP(ctx, ip)
		} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ctx = util.WithClientIP(ctx, host)
		}

		w.Header().Set("X-Request-ID", util.GetRequestID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// instrument counts requests by route template and status.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.NewTracer("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}
