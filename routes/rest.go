package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/op/go-logging"
	"github.com/prometheus/common/route"

	"alert-webhook-relay/model"
	"alert-webhook-relay/service/contact"
)

// Request bodies above this size are rejected as malformed.
const maxBodyBytes = 4 << 20

var log = logging.MustGetLogger("alert-relay")

type Renderer interface {
	Render(n *model.Notification) (string, error)
}

// RestController serves the relay's HTTP surface. It is built once at
// startup and shared by all requests; nothing in it is mutated afterwards.
type RestController struct {
	Sender   contact.Sender
	Renderer Renderer

	// ExternalURL, when set, replaces the externalURL of every notification.
	ExternalURL string

	// SendTimeout bounds a single provider call. Zero means no extra bound.
	SendTimeout time.Duration

	// Metrics is created on a private registry by SetUpRoutes when nil.
	Metrics *Metrics
}

func (rc *RestController) SetUpRoutes() http.Handler {
	if rc.Metrics == nil {
		rc.Metrics = NewMetrics(nil)
	}
	router := route.New().WithInstrumentation(rc.instrument)
	router.Get("/health", rc.HealthHandler)
	router.Get("/metrics", rc.Metrics.Handler().ServeHTTP)
	router.Post("/alert", rc.AlertHandler)
	return router
}

func (_ *RestController) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("UP"))
}

// AlertHandler runs one notification through decode, render, send and
// interpret, making a single delivery attempt.
func (rc *RestController) AlertHandler(w http.ResponseWriter, r *http.Request) {
	notification, err := model.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warningf("Rejecting alert payload from %s: %v", r.RemoteAddr, err)
		rc.Metrics.outcome(outcomeMalformed)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if rc.ExternalURL != "" {
		notification.ExternalURL = rc.ExternalURL
	}

	message, err := rc.Renderer.Render(notification)
	if err != nil {
		log.Errorf("Render template error for group %s: %v", notification.GroupKey, err)
		rc.Metrics.outcome(outcomeRenderError)
		http.Error(w, "render template error", http.StatusInternalServerError)
		return
	}

	provider := rc.Sender.Name()
	ctx := r.Context()
	if rc.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.SendTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := rc.Sender.Send(ctx, message)
	rc.Metrics.sendDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Errorf("Send to %s error: %v", provider, err)
		rc.Metrics.outcome(outcomeTransportError)
		http.Error(w, fmt.Sprintf("send to %s error", provider), http.StatusBadRequest)
		return
	}

	if err := rc.Sender.Interpret(resp); err != nil {
		log.Errorf("Send to %s error, %v", provider, err)
		rc.Metrics.outcome(outcomeRejected)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Infof("Delivered %s notification for group %s (%d alerts) to %s",
		notification.Status, notification.GroupKey, len(notification.Alerts), provider)
	rc.Metrics.outcome(outcomeDelivered)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
