package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

const (
	StatusFiring   = "firing"
	StatusResolved = "resolved"
)

// MalformedPayloadError reports a request body that is not a valid
// Alertmanager webhook notification.
type MalformedPayloadError struct {
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed payload: %s: %v", e.Reason, e.Err)
	}
	return "malformed payload: " + e.Reason
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

func malformed(format string, args ...interface{}) error {
	return &MalformedPayloadError{Reason: fmt.Sprintf(format, args...)}
}

// KV is a set of label or annotation pairs.
type KV map[string]string

type Pair struct {
	Name, Value string
}

type Pairs []Pair

func (ps Pairs) Names() []string {
	ns := make([]string, 0, len(ps))
	for _, p := range ps {
		ns = append(ns, p.Name)
	}
	return ns
}

func (ps Pairs) Values() []string {
	vs := make([]string, 0, len(ps))
	for _, p := range ps {
		vs = append(vs, p.Value)
	}
	return vs
}

// SortedPairs returns the pairs ordered by name.
func (kv KV) SortedPairs() Pairs {
	pairs := make(Pairs, 0, len(kv))
	for k, v := range kv {
		pairs = append(pairs, Pair{Name: k, Value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	return pairs
}

func (kv KV) Names() []string  { return kv.SortedPairs().Names() }
func (kv KV) Values() []string { return kv.SortedPairs().Values() }

type Alert struct {
	Status       string     `json:"status"`
	Labels       KV         `json:"labels"`
	Annotations  KV         `json:"annotations"`
	StartsAt     time.Time  `json:"startsAt"`
	EndsAt       *time.Time `json:"endsAt,omitempty"`
	GeneratorURL string     `json:"generatorURL"`
}

// UnmarshalJSON rejects alerts with missing or null required fields.
func (a *Alert) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status       *string    `json:"status"`
		Labels       *KV        `json:"labels"`
		Annotations  *KV        `json:"annotations"`
		StartsAt     *time.Time `json:"startsAt"`
		EndsAt       *time.Time `json:"endsAt"`
		GeneratorURL *string    `json:"generatorURL"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var missing []string
	if raw.Status == nil {
		missing = append(missing, "status")
	}
	if raw.Labels == nil {
		missing = append(missing, "labels")
	}
	if raw.Annotations == nil {
		missing = append(missing, "annotations")
	}
	if raw.StartsAt == nil {
		missing = append(missing, "startsAt")
	}
	if raw.GeneratorURL == nil {
		missing = append(missing, "generatorURL")
	}
	if len(missing) > 0 {
		return malformed("alert is missing required fields: %s", strings.Join(missing, ", "))
	}

	*a = Alert{
		Status:       *raw.Status,
		Labels:       *raw.Labels,
		Annotations:  *raw.Annotations,
		StartsAt:     *raw.StartsAt,
		GeneratorURL: *raw.GeneratorURL,
	}
	// Alertmanager sends the zero time for alerts that have not ended.
	if raw.EndsAt != nil && !raw.EndsAt.IsZero() {
		a.EndsAt = raw.EndsAt
	}
	return nil
}

func (a *Alert) Validate() error {
	if err := validateStatus(a.Status); err != nil {
		return err
	}
	if a.EndsAt != nil && a.EndsAt.Before(a.StartsAt) {
		return malformed("endsAt %s is before startsAt %s",
			a.EndsAt.Format(time.RFC3339), a.StartsAt.Format(time.RFC3339))
	}
	return nil
}

// Duration is how long the alert has been (or was) firing as of now.
func (a Alert) Duration(now time.Time) time.Duration {
	if a.EndsAt != nil {
		return a.EndsAt.Sub(a.StartsAt)
	}
	return now.Sub(a.StartsAt)
}

type Alerts []Alert

func (as Alerts) Firing() Alerts   { return as.withStatus(StatusFiring) }
func (as Alerts) Resolved() Alerts { return as.withStatus(StatusResolved) }

func (as Alerts) withStatus(status string) Alerts {
	res := Alerts{}
	for _, a := range as {
		if a.Status == status {
			res = append(res, a)
		}
	}
	return res
}

// Notification is one alert group delivered by the Alertmanager webhook
// receiver.
type Notification struct {
	Receiver          string `json:"receiver"`
	Status            string `json:"status"`
	Alerts            Alerts `json:"alerts"`
	Version           string `json:"version"`
	GroupLabels       KV     `json:"groupLabels"`
	CommonLabels      KV     `json:"commonLabels"`
	CommonAnnotations KV     `json:"commonAnnotations"`
	ExternalURL       string `json:"externalURL"`
	GroupKey          string `json:"groupKey"`
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	var raw struct {
		Receiver          *string `json:"receiver"`
		Status            *string `json:"status"`
		Alerts            *Alerts `json:"alerts"`
		Version           *string `json:"version"`
		GroupLabels       *KV     `json:"groupLabels"`
		CommonLabels      *KV     `json:"commonLabels"`
		CommonAnnotations *KV     `json:"commonAnnotations"`
		ExternalURL       *string `json:"externalURL"`
		GroupKey          *string `json:"groupKey"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var missing []string
	for _, f := range []struct {
		name    string
		present bool
	}{
		{"receiver", raw.Receiver != nil},
		{"status", raw.Status != nil},
		{"alerts", raw.Alerts != nil},
		{"version", raw.Version != nil},
		{"groupLabels", raw.GroupLabels != nil},
		{"commonLabels", raw.CommonLabels != nil},
		{"commonAnnotations", raw.CommonAnnotations != nil},
		{"externalURL", raw.ExternalURL != nil},
		{"groupKey", raw.GroupKey != nil},
	} {
		if !f.present {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return malformed("notification is missing required fields: %s", strings.Join(missing, ", "))
	}

	*n = Notification{
		Receiver:          *raw.Receiver,
		Status:            *raw.Status,
		Alerts:            *raw.Alerts,
		Version:           *raw.Version,
		GroupLabels:       *raw.GroupLabels,
		CommonLabels:      *raw.CommonLabels,
		CommonAnnotations: *raw.CommonAnnotations,
		ExternalURL:       *raw.ExternalURL,
		GroupKey:          *raw.GroupKey,
	}
	return nil
}

func (n *Notification) Validate() error {
	if err := validateStatus(n.Status); err != nil {
		return err
	}
	for i := range n.Alerts {
		if err := n.Alerts[i].Validate(); err != nil {
			return malformed("alerts[%d]: %s", i, reason(err))
		}
	}
	return nil
}

// Decode reads a single JSON notification from r and validates it. Every
// failure is a *MalformedPayloadError.
func Decode(r io.Reader) (*Notification, error) {
	var n Notification
	dec := json.NewDecoder(r)
	if err := dec.Decode(&n); err != nil {
		var mp *MalformedPayloadError
		if errors.As(err, &mp) {
			return nil, mp
		}
		return nil, &MalformedPayloadError{Reason: "invalid JSON body", Err: err}
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return nil, malformed("unexpected data after JSON body")
		}
		return nil, &MalformedPayloadError{Reason: "unexpected data after JSON body", Err: err}
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

func reason(err error) string {
	var mp *MalformedPayloadError
	if errors.As(err, &mp) {
		return mp.Reason
	}
	return err.Error()
}

func validateStatus(s string) error {
	switch s {
	case StatusFiring, StatusResolved:
		return nil
	}
	return malformed("status %q is not one of firing, resolved", s)
}
