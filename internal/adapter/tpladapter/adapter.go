package tpladapter

import (
	"fmt"
	"html"
	"html/template"
	"os"

	_ "embed"
)

const (
	templateName = "INDEX"
)

//go:embed template.html
var defaultTemplate string

// Funcs are available to every index template.
// esc escapes only <, >, &, ' and ", so "C++ Source" is written as is.
var Funcs = template.FuncMap{
	"esc": escape,
}

func escape(s string) template.HTML {
	return template.HTML(html.EscapeString(s))
}

// New returns the HTML index template. The embedded one is used when templateFileName is empty.
// A user template is executed with the same data: .Title, .Heading and .Files
// where every file has .Name, .Type and .Size.
func New(templateFileName string) (*template.Template, error) {
	src := defaultTemplate
	if templateFileName != "" {
		data, err := os.ReadFile(templateFileName)
		if err != nil {
			return nil, fmt.Errorf("cannot read template: %w", err)
		}

		src = string(data)
	}

	tpl, err := template.New(templateName).Funcs(Funcs).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("cannot parse template: %w", err)
	}

	return tpl, nil
}

// Default returns the embedded template. It panics if the embedded source is broken.
func Default() *template.Template {
	return template.Must(template.New(templateName).Funcs(Funcs).Parse(defaultTemplate))
}
