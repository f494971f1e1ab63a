package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-webhook-relay/model"
)

func writeTemplate(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, AlertTemplate), []byte(body), 0o644))
}

func testNotification() *model.Notification {
	ends := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	return &model.Notification{
		Receiver: "ops",
		Status:   model.StatusFiring,
		Alerts: model.Alerts{
			{
				Status:       model.StatusFiring,
				Labels:       model.KV{"alertname": "DiskFull", "instance": "node-1"},
				Annotations:  model.KV{"summary": "磁盘使用率 95% 🚨"},
				StartsAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
				GeneratorURL: "http://prom/graph?g0.expr=up",
			},
			{
				Status:       model.StatusResolved,
				Labels:       model.KV{"alertname": "HighLoad"},
				Annotations:  model.KV{},
				StartsAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
				EndsAt:       &ends,
				GeneratorURL: "",
			},
		},
		Version:           "4",
		GroupLabels:       model.KV{"alertname": "DiskFull"},
		CommonLabels:      model.KV{},
		CommonAnnotations: model.KV{},
		ExternalURL:       "http://alertmanager:9093",
		GroupKey:          "{}:{}",
	}
}

func TestRenderBindsNotification(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, `{{ .notification.Receiver }}|{{ range .notification.Alerts }}{{ .Labels.alertname }},{{ end }}|{{ .notification.ExternalURL }}`)

	out, err := New(dir).Render(testNotification())
	require.NoError(t, err)
	assert.Equal(t, "ops|DiskFull,HighLoad,|http://alertmanager:9093", out)
}

func TestRenderPreservesUnicode(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, `{{ range .notification.Alerts }}{{ index .Annotations "summary" }}{{ end }}`)

	out, err := New(dir).Render(testNotification())
	require.NoError(t, err)
	assert.Equal(t, "磁盘使用率 95% 🚨", out)
}

func TestRenderEscapesMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, `{{ range .notification.Alerts }}{{ index .Labels "job" }}{{ end }}|{{ .notification.ExternalURL }}`)

	n := testNotification()
	n.Alerts = n.Alerts[:1]
	n.Alerts[0].Labels["job"] = "**bold** [link](http://evil) # `code` _x_"
	n.ExternalURL = "http://am/x) [y](z"

	out, err := New(dir).Render(n)
	require.NoError(t, err)
	assert.Equal(t,
		"\\*\\*bold\\*\\* \\[link\\]\\(http://evil\\) \\# \\`code\\` \\_x\\_|http://am/x%29%20[y]%28z",
		out)
	assert.NotContains(t, out, "**bold**")

	// The caller's notification is left untouched.
	assert.Equal(t, "**bold** [link](http://evil) # `code` _x_", n.Alerts[0].Labels["job"])
}

func TestRenderKeepsMultilineValuesOnOneLine(t *testing.T) {
	n := testNotification()
	n.Alerts = n.Alerts[:1]
	n.Alerts[0].Labels["job"] = "api\n- injected: fake line\n\n---\n1. list"
	n.Alerts[0].Annotations["description"] = "line one\r\nline two escapes the quote\n===="
	n.Alerts[0].GeneratorURL = "http://prom/graph\n- fake"

	out, err := New(filepath.Join("..", "..", "templates")).Render(n)
	require.NoError(t, err)

	assert.Contains(t, out, "- job: api - injected: fake line  --- 1. list\n")
	assert.Contains(t, out, "> line one line two escapes the quote ====\n")
	assert.Contains(t, out, "(http://prom/graph%0A- fake)")
	for _, line := range strings.Split(out, "\n") {
		assert.False(t, strings.HasPrefix(line, "- injected"), line)
		assert.NotEqual(t, "---", line)
		assert.NotEqual(t, "====", line)
		assert.False(t, strings.HasPrefix(line, "1. "), line)
		assert.False(t, strings.HasPrefix(line, "line two"), line)
	}
}

func TestEscapeMarkdownLineStart(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"---", `\---`},
		{"- item", `\- item`},
		{"  = x", `  \= x`},
		{"1. list", `1\. list`},
		{"2024.05", "2024.05"},
		{"12 items.", "12 items."},
		{"3.", `3\.`},
		{"a\n- b", "a - b"},
		{"\n---", ` \---`},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeMarkdown(tt.in), "%q", tt.in)
	}
}

func TestRenderFuncs(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, `{{ range .notification.Alerts }}{{ if .EndsAt }}{{ date "15:04" .EndsAt }} {{ humanizeDuration 90 }} {{ div 10 4 }} {{ toUpper .Status }} {{ join "," .Labels.Names }}{{ end }}{{ end }}`)

	out, err := New(dir).Render(testNotification())
	require.NoError(t, err)
	assert.Equal(t, "10:30 1m 30s 2.5 RESOLVED alertname", out)
}

func TestRenderShippedTemplate(t *testing.T) {
	r := New(filepath.Join("..", "..", "templates"))

	out, err := r.Render(testNotification())
	require.NoError(t, err)
	assert.Contains(t, out, "[FIRING:1] DiskFull")
	assert.Contains(t, out, "磁盘使用率 95% 🚨")
	assert.Contains(t, out, "- instance: node-1")
	assert.Contains(t, out, "(http://alertmanager:9093)")
	assert.Contains(t, out, "- ended: 2024-05-01 10:30:00 UTC")
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "missing directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nope")
			},
		},
		{
			name: "template not present",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("hi"), 0o644))
				return dir
			},
		},
		{
			name: "syntax error",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeTemplate(t, dir, `{{ .notification.Receiver `)
				return dir
			},
		},
		{
			name: "unresolved variable",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeTemplate(t, dir, `{{ .notification.GroupLabels.nosuchlabel }}`)
				return dir
			},
		},
		{
			name: "unknown field",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeTemplate(t, dir, `{{ .notification.Nope }}`)
				return dir
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New(tt.setup(t)).Render(testNotification())
			require.Error(t, err)
			assert.Empty(t, out)

			var re *Error
			assert.True(t, errors.As(err, &re), "want *render.Error, got %T", err)
		})
	}
}

func TestReloadRecovers(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, `{{ broken`)

	r := New(dir)
	_, err := r.Render(testNotification())
	require.Error(t, err)

	writeTemplate(t, dir, `fixed {{ .notification.Receiver }}`)
	require.NoError(t, r.Reload())

	out, err := r.Render(testNotification())
	require.NoError(t, err)
	assert.Equal(t, "fixed ops", out)
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, `v1`)
	r := New(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeTemplate(t, dir, `v2`)

	require.Eventually(t, func() bool {
		out, err := r.Render(testNotification())
		return err == nil && out == "v2"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestEscapeMarkdownLeavesPlainText(t *testing.T) {
	assert.Equal(t, "node-1.example.com 95% 中文", EscapeMarkdown("node-1.example.com 95% 中文"))
	assert.Equal(t, "0.95", EscapeMarkdown("0.95"))
	assert.Equal(t, `a\\b`, EscapeMarkdown(`a\b`))
}
