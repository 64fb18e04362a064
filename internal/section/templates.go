package section

import (
	"embed"
	"html/template"
	"strings"

	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

//go:embed templates/*.html
var templateFS embed.FS

var tmpl = template.Must(template.New("section").Funcs(template.FuncMap{
	"join": strings.Join,
}).ParseFS(templateFS, "templates/*.html"))

func execute(name string, data any) (template.HTML, error) {
	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", xerrors.Wrapf(err, "execute %s template", name)
	}
	return template.HTML(b.String()), nil
}
