// Package dashboard renders a Grafana dashboard for the simulator metrics.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// DatasourceEnv names the variable holding the Prometheus datasource UID.
const DatasourceEnv = "PROMETHEUS_DATASOURCE_UID"

//go:embed templates/*.tmpl
var templates embed.FS

// Render writes every dashboard template to outDir. Templates read the
// datasource UID through the env function and fail if it is unset.
func Render(outDir string) ([]string, error) {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, entry := range names {
		t, err := template.New(entry.Name()).Funcs(funcMap).ParseFS(templates, "templates/"+entry.Name())
		if err != nil {
			return written, err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(entry.Name(), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return written, err
		}
		if err := t.Execute(f, nil); err != nil {
			f.Close()
			return written, fmt.Errorf("render %s: %w", entry.Name(), err)
		}
		if err := f.Close(); err != nil {
			return written, err
		}
		written = append(written, outPath)
	}
	return written, nil
}
