package web

import (
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"date": func(v any) string {
		switch t := v.(type) {
		case time.Time:
			return t.Format("Jan 2, 2006")
		case *time.Time:
			if t == nil {
				return "—"
			}
			return t.Format("Jan 2, 2006")
		default:
			return ""
		}
	},
	"datetime": func(t time.Time) string {
		return t.Format("Jan 2, 2006 15:04")
	},
	"dose": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
	"doseptr": func(v *float64) string {
		if v == nil {
			return "—"
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	},
	"percent": func(v float64) string {
		return fmt.Sprintf("%.0f%%", v*100)
	},
	"inr": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 1, 64)
	},
}).ParseFS(templatesFS, "templates/*.html"))
