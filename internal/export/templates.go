package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var scheduleTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/schedule.html")
	if err != nil {
		// Fallback to built-in template if file not found
		scheduleTemplate = template.Must(template.New("schedule").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	scheduleTemplate = template.Must(template.New("schedule").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for schedule template rendering
type TemplateData struct {
	Title       string
	GeneratedAt time.Time
	Slots       []TemplateSlot
	Rows        []TemplateRow
}

// TemplateSlot is one header column.
type TemplateSlot struct {
	Label     string
	TimeRange string
	IsMeal    bool
}

// TemplateRow is one person's table row: the name plus only the cells
// anchored in that row. Cells covered by a rowspan from above are absent.
type TemplateRow struct {
	Person string
	Cells  []TemplateCell
}

// TemplateCell is one merged block of the table.
type TemplateCell struct {
	RowSpan int
	ColSpan int
	Tasks   []TemplateTask
	Note    string
}

// TemplateTask is one task line; Shared lists all assignees when the block
// covers more than one person.
type TemplateTask struct {
	Ref    string
	Shared string
}

// RenderScheduleHTML renders the schedule template with provided data
func RenderScheduleHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := scheduleTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 1rem; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border: 1px solid #333; padding: 6px 8px; vertical-align: top; }
    th { background: #efefef; }
    th.meal { background: #ffe9c7; }
    .range { font-weight: normal; color: #666; font-size: 0.8em; }
    .shared { color: #666; font-size: 0.85em; }
    .note { font-style: italic; color: #666; font-size: 0.85em; margin-top: 4px; }
    .meta { color: #666; font-size: 0.85em; margin-bottom: 0.75rem; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">Generated {{formatDate .GeneratedAt "Jan 2, 2006 15:04"}}</div>
  <table>
    <tr>
      <th></th>
      {{range .Slots}}<th{{if .IsMeal}} class="meal"{{end}}>{{.Label}}{{if .TimeRange}} <span class="range">{{.TimeRange}}</span>{{end}}</th>{{end}}
    </tr>
    {{range .Rows}}
    <tr>
      <th>{{.Person}}</th>
      {{range .Cells}}<td{{if gt .RowSpan 1}} rowspan="{{.RowSpan}}"{{end}}{{if gt .ColSpan 1}} colspan="{{.ColSpan}}"{{end}}>
        {{range .Tasks}}<div>{{.Ref}}{{if .Shared}} <span class="shared">({{.Shared}})</span>{{end}}</div>{{end}}
        {{if .Note}}<div class="note">{{.Note}}</div>{{end}}
      </td>{{end}}
    </tr>
    {{end}}
  </table>
</body>
</html>`
