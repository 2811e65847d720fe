package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// templateData is exposed to the document's pre-render pass: an explicit
// process-environment map (never read ambiently) and a file-include
// helper rooted at the document's own directory.
type templateData struct {
	Env     map[string]string
	baseDir string
}

// Include reads a file relative to the document's directory and returns
// its contents as a string, for inlining config fragments (certs,
// per-ship overrides) into the document before it is parsed as YAML.
// Paths that escape baseDir are rejected.
func (d templateData) Include(path string) (string, error) {
	full := filepath.Join(d.baseDir, path)
	rel, err := filepath.Rel(d.baseDir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("loader: include path %q escapes document directory", path)
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("loader: include %q: %w", path, err)
	}
	return string(content), nil
}

// render pre-processes raw document bytes as a text/template, with
// sprig's function library plus Env and Include, before any YAML
// parsing happens.
func render(raw []byte, processEnv map[string]string, baseDir string) ([]byte, error) {
	data := templateData{Env: processEnv, baseDir: baseDir}

	tmpl, err := template.New("environment").Funcs(sprig.FuncMap()).Funcs(template.FuncMap{
		"include": data.Include,
	}).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("loader: parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("loader: render template: %w", err)
	}
	return buf.Bytes(), nil
}
