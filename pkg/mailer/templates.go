package mailer

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Mail bodies are plain-text templates rendered with the sprig function
// map, so copy edits stay in one place and never require a code change
// elsewhere.
const (
	welcomeTemplate = `Hi {{ .Name | trim }},

Welcome to FamVault! Your {{ .Role | lower }} account has been created.

{{- if eq .Role "PARENT" }}

Your identity documents are being reviewed. You will be notified once the
review is complete; until then some features stay locked.
{{- end }}

The FamVault Team
`

	adminReviewTemplate = `A new parent account is waiting for identity review.

Name:  {{ .Name | trim }}
Email: {{ .Email | lower }}

The submitted identity document is attached.
`

	passwordResetTemplate = `Hi {{ .Name | trim }},

We received a request to reset your FamVault password. Use the link below
within {{ .TTL }} to choose a new one:

{{ .ResetLink }}

If you did not request this, you can ignore this message.

The FamVault Team
`
)

var mailTemplates = template.Must(
	template.New("mail").Funcs(sprig.TxtFuncMap()).Parse(
		`{{ define "welcome" }}` + welcomeTemplate + `{{ end }}` +
			`{{ define "admin_review" }}` + adminReviewTemplate + `{{ end }}` +
			`{{ define "password_reset" }}` + passwordResetTemplate + `{{ end }}`,
	),
)

// RenderTemplate executes one of the named mail templates.
func RenderTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render mail template %s: %w", name, err)
	}
	return buf.String(), nil
}
