// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"fmt"
	"strings"
	"text/template"
)

// routePrompt asks for exactly one evidence-routing label.
var routePrompt = template.Must(template.New("route").Parse(`You are the query router for a retail analytics assistant. Classify the question by the evidence needed to answer it.

Labels:
- doc-only: answerable from policy or marketing documents alone
- store-only: answerable from the sales database alone
- both: needs marketing documents to resolve dates or metric definitions, then the database

Respond with exactly one label and nothing else.

Question: {{.Question}}
`))

type routeVars struct {
	Question string
}

// sqlPrompt asks for one SQLite SELECT statement, briefed with the
// live schema and the mechanical constraint requirements.
var sqlPrompt = template.Must(template.New("sql").Parse(`You are a SQLite analyst for a retail sales database. Write one SELECT statement that answers the question.

{{.Schema}}

Requirements: {{.Constraints}}

Question: {{.Question}}

Respond with ONLY the SELECT statement, no explanation and no markdown fences.
`))

type sqlVars struct {
	Question    string
	Schema      string
	Constraints string
}

// renderPrompt executes a prompt template against its variables.
func renderPrompt(tmpl *template.Template, vars any) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}
