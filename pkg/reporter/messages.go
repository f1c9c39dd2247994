/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package reporter

import (
	"fmt"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"
)

// maxDetail bounds the error text quoted in a failure comment.
const maxDetail = 2000

var funcs = texttemplate.FuncMap{
	"seconds": func(d time.Duration) string {
		return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
	},
	"detail": detail,
}

// detail returns the error text, cut to maxDetail bytes.
func detail(err error) string {
	s := strings.TrimSpace(err.Error())
	if len(s) <= maxDetail {
		return s
	}
	return strings.ToValidUTF8(s[:maxDetail], "") + "\n... (truncated, see the build logs)"
}

var messages = map[Phase]*texttemplate.Template{
	PhaseDeploying: texttemplate.Must(texttemplate.New("deploying").Funcs(funcs).Parse(
		`⚡️ Deploying PR Preview {{.SHA}} to [{{.URL}}](https://{{.URL}}) ... [Build logs]({{.BuildingLogURL}})`)),

	PhaseSucceeded: texttemplate.Must(texttemplate.New("succeeded").Funcs(funcs).Parse(
		`🎊 PR Preview {{.SHA}} has been successfully built and deployed to https://{{.URL}}

:clock1: Build time: **{{seconds .Duration}}s**

[Build logs]({{.BuildingLogURL}})`)),

	PhaseFailed: texttemplate.Must(texttemplate.New("failed").Funcs(funcs).Parse(
		`😭 Deploy PR Preview {{.SHA}} failed. [Build logs]({{.BuildingLogURL}})
{{- if .Err}}

<details><summary>Error</summary>

` + "```" + `
{{detail .Err}}
` + "```" + `

</details>
{{- end}}`)),

	PhaseDestroyed: texttemplate.Must(texttemplate.New("destroyed").Funcs(funcs).Parse(
		`:recycle: [PR Preview](https://{{.URL}}) {{.SHA}} has been successfully destroyed since this PR has been closed.`)),
}

const footer = "\n\n<sub>pr-preview · {{.Header}}</sub>"

var footerTmpl = texttemplate.Must(texttemplate.New("footer").Parse(footer))

func (r *Reporter) render(s Status) (string, error) {
	tmpl, ok := messages[s.Phase]
	if !ok {
		return "", fmt.Errorf("unknown phase %q", s.Phase)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, s); err != nil {
		return "", fmt.Errorf("executing %s template: %w", s.Phase, err)
	}
	if err := footerTmpl.Execute(&b, r.opts); err != nil {
		return "", fmt.Errorf("executing footer template: %w", err)
	}
	return b.String(), nil
}
