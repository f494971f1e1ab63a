package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"text/template"

	"github.com/op/go-logging"

	"alert-webhook-relay/model"
)

// AlertTemplate is the template executed for every notification.
const AlertTemplate = "alert.md"

var log = logging.MustGetLogger("alert-relay")

// Error is returned when the template set cannot be loaded or executed.
// It points at a deployment defect, not at the request being rendered.
type Error struct {
	Template string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render template %s: %v", e.Template, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Renderer turns notifications into markdown using the templates found in
// a directory. The parsed set is replaced wholesale on Reload, so a failed
// reload is reported by every Render until the directory is fixed.
type Renderer struct {
	dir string

	mu   sync.RWMutex
	tmpl *template.Template
	err  error
}

func New(dir string) *Renderer {
	r := &Renderer{dir: dir}
	if err := r.Reload(); err != nil {
		log.Errorf("Failed to load templates from %s: %v", dir, err)
	}
	return r
}

func (r *Renderer) Dir() string { return r.dir }

// Reload parses every regular file in the template directory.
func (r *Renderer) Reload() error {
	tmpl, err := parseDir(r.dir)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tmpl, r.err = tmpl, err
	return err
}

func parseDir(dir string) (*template.Template, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}

	var files []string
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			return nil, err
		}
		if fi.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no template files in %s", dir)
	}

	return template.New("").
		Option("missingkey=error").
		Funcs(funcMap()).
		ParseFiles(files...)
}

// Render executes the alert template with the notification bound to the
// "notification" variable. Text values are markdown-escaped first.
func (r *Renderer) Render(n *model.Notification) (string, error) {
	r.mu.RLock()
	tmpl, loadErr := r.tmpl, r.err
	r.mu.RUnlock()

	if loadErr != nil {
		return "", &Error{Template: AlertTemplate, Err: loadErr}
	}
	t := tmpl.Lookup(AlertTemplate)
	if t == nil {
		return "", &Error{Template: AlertTemplate, Err: fmt.Errorf("template not found in %s", r.dir)}
	}

	data := map[string]interface{}{
		"notification": escapeNotification(n),
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", &Error{Template: AlertTemplate, Err: err}
	}
	return buf.String(), nil
}
