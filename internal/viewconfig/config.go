// Package viewconfig parses raw view definitions into the canonical
// configuration consumed by the layout generators.
//
// A view definition names a primary entity, optional related entities, an
// ordered field list and a layout. Parsing fills every optional key with its
// default and enriches each field with the flags and type mappings the
// generators need:
//
//	Field type    sortable  filterable  TypeScript            Go
//	string        yes       yes         string                string
//	text                                string                string
//	number        yes                   number                float64
//	currency                            number                decimal.Decimal
//	date          yes                   string                time.Time
//	datetime                            string                time.Time
//	enum          yes       yes         'A' | 'B'             string
//	boolean                 yes         boolean               bool
//	uuid                                string                uuid.UUID
//	email                               string                string
//	phone                               string                string
//	json                                Record<string, any>   json.RawMessage
package viewconfig

// LayoutType selects the generator.
type LayoutType string

const (
	LayoutTable  LayoutType = "table"
	LayoutList   LayoutType = "list"
	LayoutDetail LayoutType = "detail"
	LayoutForm   LayoutType = "form"
)

// LayoutTypes lists the valid layout types in declaration order.
var LayoutTypes = []LayoutType{LayoutTable, LayoutList, LayoutDetail, LayoutForm}

// Valid reports whether t is a known layout type.
func (t LayoutType) Valid() bool {
	for _, lt := range LayoutTypes {
		if t == lt {
			return true
		}
	}
	return false
}

// DefaultVersion is assigned to configurations without a version.
const DefaultVersion = "1.0"

// UnknownModule is the module name assigned when the hierarchy omits one.
const UnknownModule = "Unknown Module"

// Config is the canonical view configuration.
type Config struct {
	Version   string    `json:"version"`
	Hierarchy Hierarchy `json:"hierarchy"`
	Entity    EntityRef `json:"entity"`
	Fields    []Field   `json:"fields"`
	Layout    Layout    `json:"layout"`
}

// Hierarchy places the view inside the application navigation.
type Hierarchy struct {
	Module    ModuleRef `json:"module"`
	Submodule string    `json:"submodule,omitempty"`
	View      string    `json:"view,omitempty"`
}

// ModuleRef identifies the owning module.
type ModuleRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// EntityRef names the primary entity and the related entities the view reads.
type EntityRef struct {
	Primary string   `json:"primary"`
	Related []string `json:"related,omitempty"`
}

// Field is a field descriptor. Fields are built by Parse and not modified
// afterwards.
type Field struct {
	Entity      string   `json:"entity"`
	Field       string   `json:"field"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	IsRelated   bool     `json:"isRelated"`
	DisplayPath string   `json:"displayPath"`
	Required    bool     `json:"required,omitempty"`
	Options     []string `json:"options,omitempty"`

	IsSortable   bool   `json:"isSortable"`
	IsFilterable bool   `json:"isFilterable"`
	TSType       string `json:"tsType,omitempty"`
	GoType       string `json:"goType,omitempty"`
}

// Layout selects the generator and its optional features.
type Layout struct {
	Type     LayoutType `json:"type"`
	Features Features   `json:"features"`
}

// Features toggles optional markup. Absent features are false.
type Features struct {
	Search     bool `json:"search"`
	Filter     bool `json:"filter"`
	Sort       bool `json:"sort"`
	Pagination bool `json:"pagination"`
	Selection  bool `json:"selection"`
}

// EntityOrder returns the primary entity followed by the related entities.
func (c *Config) EntityOrder() []string {
	out := make([]string, 0, 1+len(c.Entity.Related))
	out = append(out, c.Entity.Primary)
	return append(out, c.Entity.Related...)
}

// FieldsOf returns the fields owned by entity, in configuration order.
func (c *Config) FieldsOf(entity string) []Field {
	var out []Field
	for _, f := range c.Fields {
		if f.Entity == entity {
			out = append(out, f)
		}
	}
	return out
}
