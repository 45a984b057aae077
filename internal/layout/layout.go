// Package layout renders view configurations into static HTML markup.
//
// Every generator takes a parsed view configuration and either synthesizes
// sample rows (Generate) or renders caller-supplied rows (Render). Output is
// deterministic apart from the header timestamp, which comes from the
// generator's clock.
package layout

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/matthewbaird/fieldops/internal/naming"
	"github.com/matthewbaird/fieldops/internal/sampledata"
	"github.com/matthewbaird/fieldops/internal/viewconfig"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("layout").Funcs(template.FuncMap{
	"esc": template.HTMLEscapeString,
}).ParseFS(templateFS, "templates/*.tmpl"))

// Generator turns a view configuration into markup.
type Generator interface {
	Generate(cfg *viewconfig.Config) (string, error)
	Render(cfg *viewconfig.Config, rows []sampledata.Row) (string, error)
}

// Option configures a generator.
type Option func(*options)

type options struct {
	rows   int
	format *FormatPolicy
	now    func() time.Time
}

// WithRows sets the number of sample rows Generate synthesizes.
func WithRows(n int) Option {
	return func(o *options) { o.rows = n }
}

// WithFormat overrides the generator's default FormatPolicy.
func WithFormat(p FormatPolicy) Option {
	return func(o *options) { o.format = &p }
}

// WithClock sets the clock used for the header timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(def FormatPolicy, opts []Option) (options, FormatPolicy) {
	o := options{rows: sampledata.DefaultRows, now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	p := def
	if o.format != nil {
		p = *o.format
	}
	return o, p
}

// For returns the generator for layout type t.
func For(t viewconfig.LayoutType, opts ...Option) (Generator, error) {
	switch t {
	case viewconfig.LayoutTable:
		return NewTable(opts...), nil
	case viewconfig.LayoutList:
		return NewList(opts...), nil
	case viewconfig.LayoutDetail:
		return NewDetail(opts...), nil
	case viewconfig.LayoutForm:
		return NewForm(opts...), nil
	default:
		return nil, fmt.Errorf("unknown layout type %q", t)
	}
}

// base carries what every template-backed generator shares.
type base struct {
	layout   viewconfig.LayoutType
	template string
	opts     options
	format   FormatPolicy
}

func newBase(t viewconfig.LayoutType, def FormatPolicy, opts []Option) base {
	o, p := buildOptions(def, opts)
	return base{layout: t, template: string(t) + ".html.tmpl", opts: o, format: p}
}

// Format returns the generator's format policy.
func (b base) Format() FormatPolicy { return b.format }

func (b base) generate(cfg *viewconfig.Config, render func(*viewconfig.Config, []sampledata.Row) (string, error)) (string, error) {
	n := b.opts.rows
	if b.layout == viewconfig.LayoutDetail || b.layout == viewconfig.LayoutForm {
		n = 1
	}
	return render(cfg, sampledata.Rows(cfg, n))
}

func (b base) execute(data *viewData) (string, error) {
	var buf strings.Builder
	if err := templates.ExecuteTemplate(&buf, b.template, data); err != nil {
		return "", fmt.Errorf("rendering %s view: %w", b.layout, err)
	}
	return buf.String(), nil
}

// viewData is the template input.
type viewData struct {
	Module      string
	View        string
	Title       string
	Entity      string
	Layout      viewconfig.LayoutType
	GeneratedAt string
	Features    viewconfig.Features
	Fields      []viewconfig.Field
	Filters     []filterView
	Rows        []rowView
	Groups      []groupView
	Inputs      []string
}

type filterView struct {
	Field   viewconfig.Field
	Options []string
}

type rowView struct {
	Number int
	Title  string
	Cells  []cellView
}

type cellView struct {
	Field viewconfig.Field
	Text  string
	Null  bool
}

type groupView struct {
	Entity string
	Title  string
	Cells  []cellView
}

func (b base) newViewData(cfg *viewconfig.Config) *viewData {
	view := cfg.Hierarchy.View
	if view == "" {
		view = cfg.Entity.Primary + " " + naming.ToPascal(string(b.layout))
	}
	return &viewData{
		Module:      cfg.Hierarchy.Module.Name,
		View:        view,
		Title:       view,
		Entity:      cfg.Entity.Primary,
		Layout:      b.layout,
		GeneratedAt: b.opts.now().UTC().Format(time.RFC3339),
		Features:    cfg.Layout.Features,
		Fields:      cfg.Fields,
	}
}

func (b base) cells(fields []viewconfig.Field, row sampledata.Row) []cellView {
	out := make([]cellView, len(fields))
	for i, f := range fields {
		v := row[f.DisplayPath]
		out[i] = cellView{Field: f, Text: b.format.Format(f, v), Null: v == nil}
	}
	return out
}

func (b base) rows(cfg *viewconfig.Config, rows []sampledata.Row) []rowView {
	out := make([]rowView, len(rows))
	for i, r := range rows {
		rv := rowView{Number: i + 1, Cells: b.cells(cfg.Fields, r)}
		if len(rv.Cells) > 0 {
			rv.Title = rv.Cells[0].Text
		}
		out[i] = rv
	}
	return out
}

func (b base) filters(cfg *viewconfig.Config) []filterView {
	var out []filterView
	for _, f := range cfg.Fields {
		if !f.IsFilterable {
			continue
		}
		fv := filterView{Field: f}
		switch f.Type {
		case viewconfig.TypeEnum:
			fv.Options = f.Options
		case viewconfig.TypeBoolean:
			fv.Options = []string{b.format.True, b.format.False}
		}
		out = append(out, fv)
	}
	return out
}

// Table renders one table row per record.
type Table struct{ base }

// NewTable returns a table generator using TableFormat unless overridden.
func NewTable(opts ...Option) *Table {
	return &Table{newBase(viewconfig.LayoutTable, TableFormat, opts)}
}

func (g *Table) Generate(cfg *viewconfig.Config) (string, error) { return g.generate(cfg, g.Render) }

func (g *Table) Render(cfg *viewconfig.Config, rows []sampledata.Row) (string, error) {
	data := g.newViewData(cfg)
	data.Filters = g.filters(cfg)
	data.Rows = g.rows(cfg, rows)
	return g.execute(data)
}

// List renders one list item per record, titled by its first field.
type List struct{ base }

// NewList returns a list generator using TextFormat unless overridden.
func NewList(opts ...Option) *List {
	return &List{newBase(viewconfig.LayoutList, TextFormat, opts)}
}

func (g *List) Generate(cfg *viewconfig.Config) (string, error) { return g.generate(cfg, g.Render) }

func (g *List) Render(cfg *viewconfig.Config, rows []sampledata.Row) (string, error) {
	data := g.newViewData(cfg)
	data.Filters = g.filters(cfg)
	data.Rows = g.rows(cfg, rows)
	return g.execute(data)
}

// Detail renders the first record grouped by owning entity, primary first.
type Detail struct{ base }

// NewDetail returns a detail generator using TextFormat unless overridden.
func NewDetail(opts ...Option) *Detail {
	return &Detail{newBase(viewconfig.LayoutDetail, TextFormat, opts)}
}

func (g *Detail) Generate(cfg *viewconfig.Config) (string, error) { return g.generate(cfg, g.Render) }

func (g *Detail) Render(cfg *viewconfig.Config, rows []sampledata.Row) (string, error) {
	data := g.newViewData(cfg)
	var row sampledata.Row
	if len(rows) > 0 {
		row = rows[0]
	}
	for _, entity := range cfg.EntityOrder() {
		fields := cfg.FieldsOf(entity)
		if len(fields) == 0 {
			continue
		}
		data.Groups = append(data.Groups, groupView{
			Entity: entity,
			Title:  entity,
			Cells:  g.cells(fields, row),
		})
	}
	return g.execute(data)
}
