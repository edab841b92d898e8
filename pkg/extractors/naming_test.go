package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQualifiedName(t *testing.T) {
	assert.Equal(t, "mysql.db.internal.sales.orders",
		BuildQualifiedName("mysql", "db.internal", "sales", "orders"))
	assert.Equal(t, "mysql.sales", BuildQualifiedName("mysql", "", "sales"))
	assert.Equal(t, "", BuildQualifiedName())
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"orders", "orders"},
		{"  orders  ", "orders"},
		{"`orders`", "orders"},
		{`"Orders"`, "Orders"},
		{"'orders'", "orders"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeIdentifier(tt.input), tt.input)
	}
}

func TestNormalizeDataType(t *testing.T) {
	tests := []struct {
		native string
		want   string
	}{
		{"varchar(255)", TypeString},
		{"VARCHAR", TypeString},
		{"int", TypeInteger},
		{"int unsigned", TypeInteger},
		{"bigint", TypeInteger},
		{"decimal(10,2)", TypeDecimal},
		{"double", TypeFloat},
		{"tinyint(1)", TypeInteger},
		{"datetime", TypeDatetime},
		{"timestamp_ntz", TypeDatetime},
		{"date", TypeDate},
		{"json", TypeJSON},
		{"struct<a:int,b:string>", TypeJSON},
		{"array<string>", TypeJSON},
		{"uniqueidentifier", TypeString},
		{"geometry", TypeOther},
		{"", TypeOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDataType(tt.native), tt.native)
	}
}
