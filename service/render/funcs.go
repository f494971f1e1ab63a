package render

import (
	"strings"
	"text/template"
	"time"

	"github.com/prometheus/common/helpers/templates"

	"alert-webhook-relay/helper"
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"div":              helper.SafeDivide,
		"humanizeDuration": templates.HumanizeDuration,
		"since": func(t time.Time) float64 {
			return time.Since(t).Seconds()
		},
		"date": func(layout string, t time.Time) string {
			return t.Format(layout)
		},
		"join": func(sep string, s []string) string {
			return strings.Join(s, sep)
		},
		"toUpper": strings.ToUpper,
		"toLower": strings.ToLower,
	}
}
