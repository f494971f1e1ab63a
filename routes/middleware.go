package routes

import (
	"net/http"
	"strconv"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// instrument wraps every route with access logging and request metrics.
func (rc *RestController) instrument(handlerName string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		handler(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(start)

		rc.Metrics.requests.WithLabelValues(handlerName, strconv.Itoa(rec.status)).Inc()
		rc.Metrics.requestDuration.WithLabelValues(handlerName).Observe(elapsed.Seconds())

		log.Infof(`%s "%s %s %s" %d %d "%s" %.6f`,
			r.RemoteAddr, r.Method, r.URL.RequestURI(), r.Proto,
			rec.status, rec.bytes, r.UserAgent(), elapsed.Seconds())
	}
}
