package extractors

import "strings"

// Canonical data types. Extractors map source-native column types onto this
// set so downstream consumers can reason about columns without knowing the
// source system; the native type is preserved alongside.
const (
	TypeString   = "string"
	TypeInteger  = "integer"
	TypeFloat    = "float"
	TypeDecimal  = "decimal"
	TypeBoolean  = "boolean"
	TypeDate     = "date"
	TypeDatetime = "datetime"
	TypeTime     = "time"
	TypeBinary   = "binary"
	TypeJSON     = "json"
	TypeOther    = "other"
)

var canonicalTypes = map[string]string{
	// integers
	"tinyint":   TypeInteger,
	"smallint":  TypeInteger,
	"mediumint": TypeInteger,
	"int":       TypeInteger,
	"integer":   TypeInteger,
	"bigint":    TypeInteger,
	"year":      TypeInteger,
	"byte":      TypeInteger,
	"short":     TypeInteger,
	"long":      TypeInteger,

	// floats and decimals
	"float":      TypeFloat,
	"double":     TypeFloat,
	"real":       TypeFloat,
	"decimal":    TypeDecimal,
	"numeric":    TypeDecimal,
	"money":      TypeDecimal,
	"smallmoney": TypeDecimal,

	// booleans
	"bool":    TypeBoolean,
	"boolean": TypeBoolean,
	"bit":     TypeBoolean,

	// strings
	"char":             TypeString,
	"varchar":          TypeString,
	"nchar":            TypeString,
	"nvarchar":         TypeString,
	"text":             TypeString,
	"tinytext":         TypeString,
	"mediumtext":       TypeString,
	"longtext":         TypeString,
	"ntext":            TypeString,
	"enum":             TypeString,
	"set":              TypeString,
	"uniqueidentifier": TypeString,
	"xml":              TypeString,

	// temporal
	"date":           TypeDate,
	"time":           TypeTime,
	"datetime":       TypeDatetime,
	"datetime2":      TypeDatetime,
	"smalldatetime":  TypeDatetime,
	"datetimeoffset": TypeDatetime,
	"timestamp":      TypeDatetime,

	// binary
	"binary":     TypeBinary,
	"varbinary":  TypeBinary,
	"blob":       TypeBinary,
	"tinyblob":   TypeBinary,
	"mediumblob": TypeBinary,
	"longblob":   TypeBinary,
	"image":      TypeBinary,

	// structured
	"json":    TypeJSON,
	"variant": TypeJSON,
}

// NormalizeDataType maps a source-native column type onto the canonical set.
// Size and precision qualifiers are ignored ("varchar(255)" normalizes like
// "varchar"). Unrecognized types map to TypeOther.
func NormalizeDataType(nativeType string) string {
	t := strings.ToLower(strings.TrimSpace(nativeType))
	if t == "" {
		return TypeOther
	}

	// strip size/precision qualifiers and modifiers like "unsigned"
	if idx := strings.IndexAny(t, "(< "); idx > 0 {
		t = t[:idx]
	}

	if canonical, ok := canonicalTypes[t]; ok {
		return canonical
	}

	// warehouse types often spell the family in the prefix
	switch {
	case strings.HasPrefix(t, "string"):
		return TypeString
	case strings.HasPrefix(t, "struct"), strings.HasPrefix(t, "array"), strings.HasPrefix(t, "map"):
		return TypeJSON
	case strings.HasPrefix(t, "timestamp"):
		return TypeDatetime
	}

	return TypeOther
}
