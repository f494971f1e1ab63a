package render

import (
	"strings"

	"alert-webhook-relay/model"
)

// Line breaks are folded to spaces so a value stays inside the line (list
// item, blockquote, heading) the template put it on.
var markdownEscaper = strings.NewReplacer(
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`#`, `\#`,
	`+`, `\+`,
	`!`, `\!`,
	`|`, `\|`,
	`<`, `\<`,
	`>`, `\>`,
	`~`, `\~`,
)

// Characters that would end a markdown link destination early.
var urlEscaper = strings.NewReplacer(
	` `, `%20`,
	`(`, `%28`,
	`)`, `%29`,
	`<`, `%3C`,
	`>`, `%3E`,
	"\r", `%0D`,
	"\n", `%0A`,
)

// EscapeMarkdown flattens s to a single line and backslash-escapes
// characters with meaning in markdown, including a leading list, rule or
// setext marker.
func EscapeMarkdown(s string) string {
	return escapeLineStart(markdownEscaper.Replace(s))
}

// escapeLineStart escapes a `-`, `=` or `1.` marker at the start of s, after
// any indentation, for templates that place a value at the start of a line.
func escapeLineStart(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i == len(s) {
		return s
	}
	switch s[i] {
	case '-', '=':
		return s[:i] + `\` + s[i:]
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j > i && j < len(s) && s[j] == '.' && (j+1 == len(s) || s[j+1] == ' ' || s[j+1] == '\t') {
		return s[:j] + `\` + s[j:]
	}
	return s
}

// EscapeURL percent-encodes the characters that can break out of a
// markdown link target.
func EscapeURL(s string) string { return urlEscaper.Replace(s) }

// escapeKV escapes values only. Names stay raw since templates look them up
// by name and label names cannot carry markdown structure.
func escapeKV(kv model.KV) model.KV {
	out := make(model.KV, len(kv))
	for k, v := range kv {
		out[k] = EscapeMarkdown(v)
	}
	return out
}

// escapeNotification returns a copy of n that is safe to interpolate into
// markdown. n itself is not modified.
func escapeNotification(n *model.Notification) model.Notification {
	out := model.Notification{
		Receiver:          EscapeMarkdown(n.Receiver),
		Status:            EscapeMarkdown(n.Status),
		Alerts:            make(model.Alerts, 0, len(n.Alerts)),
		Version:           EscapeMarkdown(n.Version),
		GroupLabels:       escapeKV(n.GroupLabels),
		CommonLabels:      escapeKV(n.CommonLabels),
		CommonAnnotations: escapeKV(n.CommonAnnotations),
		ExternalURL:       EscapeURL(n.ExternalURL),
		GroupKey:          EscapeMarkdown(n.GroupKey),
	}
	for _, a := range n.Alerts {
		out.Alerts = append(out.Alerts, model.Alert{
			Status:       EscapeMarkdown(a.Status),
			Labels:       escapeKV(a.Labels),
			Annotations:  escapeKV(a.Annotations),
			StartsAt:     a.StartsAt,
			EndsAt:       a.EndsAt,
			GeneratorURL: EscapeURL(a.GeneratorURL),
		})
	}
	return out
}
