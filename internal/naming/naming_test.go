package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"accountName": "account_name",
		"AccountName": "account_name",
		"account_id":  "account_id",
		"accountID":   "account_id",
		"HTTPServer":  "http_server",
		"WorkOrder":   "work_order",
		"status":      "status",
	}
	for in, want := range cases {
		assert.Equal(t, want, ToSnake(in), "ToSnake(%q)", in)
	}
}

func TestToPascalAndCamel(t *testing.T) {
	assert.Equal(t, "WorkOrder", ToPascal("work_order"))
	assert.Equal(t, "AccountID", ToPascal("account_id"))
	assert.Equal(t, "accountName", ToCamel("account_name"))
	assert.Equal(t, "accountName", ToCamel("AccountName"))
	assert.Equal(t, "work-order", ToKebab("WorkOrder"))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Account Name", Label("accountName"))
	assert.Equal(t, "In Progress", Label("in_progress"))
	assert.Equal(t, "Account ID", Label("accountId"))
	assert.Equal(t, "", Label(""))
	assert.Equal(t, "Account", RefLabel("account_id"))
}
