// Package templates renders the shell scripts staged next to a payload.
package templates

import (
	"bytes"
	"text/template"
)

// RunScriptTmpl wraps a payload command for execution inside the staging
// directory. The wrapper exports the configured environment, cds into the
// staging dir, and mirrors the payload's exit status. Stdout/stderr pass
// through untouched so RunCheck output stays the payload's own.
const RunScriptTmpl = `#!/bin/sh
set -e
cd "{{.WorkDir}}"
{{- range $k, $v := .Env}}
export {{$k}}="{{$v}}"
{{- end}}
exec {{.Command}}
`

// Config defines the variables needed to render a wrapper script.
type Config struct {
	WorkDir string            // staging directory on the target
	Command string            // payload command line, staging-relative
	Env     map[string]string // exported before the payload runs
}

// Render executes the named template with cfg.
func Render(name, tmplStr string, cfg Config) ([]byte, error) {
	tmpl, err := template.New(name).Parse(tmplStr)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
