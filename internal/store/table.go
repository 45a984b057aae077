package store

import "slices"

// ColumnType is the logical type of a column.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeUUID    ColumnType = "uuid"
	TypeBool    ColumnType = "bool"
	TypeDecimal ColumnType = "decimal"
	TypeTime    ColumnType = "time"
	TypeInt     ColumnType = "int"
)

// Column describes one column of a table.
type Column struct {
	Name     string
	Type     ColumnType
	Required bool
	Unique   bool
	// References names the table a UUID column points at.
	References string
	// Field is the matching field name in the entity model and rules.
	Field string
}

// Table describes a stored resource.
type Table struct {
	Name    string
	Entity  string
	Columns []Column
}

// System columns present on every table.
const (
	ColID        = "id"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
)

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	i := slices.IndexFunc(t.Columns, func(c Column) bool { return c.Name == name })
	if i < 0 {
		return Column{}, false
	}
	return t.Columns[i], true
}

// ColumnNames returns the system columns followed by the data columns.
func (t *Table) ColumnNames() []string {
	out := []string{ColID, ColCreatedAt, ColUpdatedAt}
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}

func col(name string, typ ColumnType, field string) Column {
	return Column{Name: name, Type: typ, Field: field}
}

func (c Column) required() Column { c.Required = true; return c }
func (c Column) unique() Column   { c.Unique = true; return c }
func (c Column) ref(table string) Column {
	c.References = table
	return c
}

var (
	Accounts = &Table{
		Name:   "accounts",
		Entity: "Account",
		Columns: []Column{
			col("account_name", TypeText, "accountName").required().unique(),
			col("status", TypeText, "status").required(),
			col("email", TypeText, "email"),
			col("phone", TypeText, "phone"),
			col("is_key_account", TypeBool, "isKeyAccount"),
			col("credit_limit", TypeDecimal, "creditLimit"),
			col("tax_id", TypeText, "taxId"),
			col("notes", TypeText, "notes"),
		},
	}

	Locations = &Table{
		Name:   "locations",
		Entity: "Location",
		Columns: []Column{
			col("account_id", TypeUUID, "accountId").required().ref("accounts"),
			col("name", TypeText, "name"),
			col("street", TypeText, "street").required(),
			col("city", TypeText, "city").required(),
			col("state", TypeText, "state"),
			col("zip", TypeText, "zip"),
		},
	}

	Contacts = &Table{
		Name:   "contacts",
		Entity: "Contact",
		Columns: []Column{
			col("account_id", TypeUUID, "accountId").required().ref("accounts"),
			col("first_name", TypeText, "firstName").required(),
			col("last_name", TypeText, "lastName").required(),
			col("email", TypeText, "email"),
			col("phone", TypeText, "phone"),
			col("is_primary", TypeBool, "isPrimary"),
		},
	}

	WorkOrders = &Table{
		Name:   "work_orders",
		Entity: "WorkOrder",
		Columns: []Column{
			col("account_id", TypeUUID, "accountId").required().ref("accounts"),
			col("location_id", TypeUUID, "locationId").ref("locations"),
			col("contact_id", TypeUUID, "contactId").ref("contacts"),
			col("title", TypeText, "title").required(),
			col("description", TypeText, "description"),
			col("status", TypeText, "status").required(),
			col("priority", TypeText, "priority"),
			col("scheduled_for", TypeTime, "scheduledFor"),
			col("estimated_hours", TypeInt, "estimatedHours"),
		},
	}
)

// Tables lists every table in creation order.
var Tables = []*Table{Accounts, Locations, Contacts, WorkOrders}

// TableByName returns the table with the given name.
func TableByName(name string) (*Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}
