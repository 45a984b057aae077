package layout

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/matthewbaird/fieldops/internal/sampledata"
	"github.com/matthewbaird/fieldops/internal/viewconfig"
)

// Form renders one labelled input per field, prefilled from the first record.
type Form struct{ base }

// NewForm returns a form generator using TextFormat unless overridden. The
// policy formats prefilled values; its Null text is the placeholder of empty
// inputs and the label of the blank select option.
func NewForm(opts ...Option) *Form {
	return &Form{newBase(viewconfig.LayoutForm, TextFormat, opts)}
}

func (g *Form) Generate(cfg *viewconfig.Config) (string, error) { return g.generate(cfg, g.Render) }

func (g *Form) Render(cfg *viewconfig.Config, rows []sampledata.Row) (string, error) {
	data := g.newViewData(cfg)
	var row sampledata.Row
	if len(rows) > 0 {
		row = rows[0]
	}
	for _, f := range cfg.Fields {
		data.Inputs = append(data.Inputs, formInput(g.format, f, row[f.DisplayPath]))
	}
	return g.execute(data)
}

// formInput returns the markup for a single form control.
func formInput(p FormatPolicy, f viewconfig.Field, v any) string {
	esc := template.HTMLEscapeString
	name := esc(f.DisplayPath)
	label := esc(f.Label)
	req := ""
	if f.Required {
		req = " required"
	}
	val, placeholder := "", ""
	if v != nil {
		val = esc(p.Format(viewconfig.Field{Type: viewconfig.TypeString}, v))
	} else if p.Null != "" {
		placeholder = fmt.Sprintf(` placeholder="%s"`, esc(p.Null))
	}

	var control string
	switch f.Type {
	case viewconfig.TypeText, viewconfig.TypeJSON:
		control = fmt.Sprintf(`<textarea id="%s" name="%s"%s%s>%s</textarea>`, name, name, placeholder, req, val)
	case viewconfig.TypeNumber:
		control = fmt.Sprintf(`<input type="number" step="any" id="%s" name="%s" value="%s"%s%s>`, name, name, val, placeholder, req)
	case viewconfig.TypeCurrency:
		control = fmt.Sprintf(`<input type="number" step="0.01" min="0" id="%s" name="%s" value="%s"%s%s>`, name, name, val, placeholder, req)
	case viewconfig.TypeDate:
		control = fmt.Sprintf(`<input type="date" id="%s" name="%s" value="%s"%s>`, name, name, val, req)
	case viewconfig.TypeDateTime:
		control = fmt.Sprintf(`<input type="datetime-local" id="%s" name="%s" value="%s"%s>`, name, name, val, req)
	case viewconfig.TypeEmail:
		control = fmt.Sprintf(`<input type="email" id="%s" name="%s" value="%s"%s%s>`, name, name, val, placeholder, req)
	case viewconfig.TypePhone:
		control = fmt.Sprintf(`<input type="tel" id="%s" name="%s" value="%s"%s%s>`, name, name, val, placeholder, req)
	case viewconfig.TypeBoolean:
		checked := ""
		if b, ok := v.(bool); ok && b {
			checked = " checked"
		}
		control = fmt.Sprintf(`<input type="checkbox" id="%s" name="%s"%s>`, name, name, checked)
	case viewconfig.TypeUUID:
		control = fmt.Sprintf(`<input type="text" id="%s" name="%s" value="%s" pattern="[0-9a-fA-F-]{36}"%s%s>`, name, name, val, placeholder, req)
	case viewconfig.TypeEnum:
		var b strings.Builder
		fmt.Fprintf(&b, `<select id="%s" name="%s"%s>`, name, name, req)
		fmt.Fprintf(&b, "\n        <option value=\"\">%s</option>", esc(p.Null))
		for _, o := range f.Options {
			sel := ""
			if o == fmt.Sprint(v) {
				sel = " selected"
			}
			fmt.Fprintf(&b, "\n        <option value=\"%s\"%s>%s</option>", esc(o), sel, esc(o))
		}
		b.WriteString("\n      </select>")
		control = b.String()
	default:
		control = fmt.Sprintf(`<input type="text" id="%s" name="%s" value="%s"%s%s>`, name, name, val, placeholder, req)
	}
	return fmt.Sprintf("<label for=\"%s\">%s</label>\n      %s", name, label, control)
}
