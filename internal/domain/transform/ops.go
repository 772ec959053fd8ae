package transform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// format
// ---------------------------------------------------------------------------

// applyFormat performs typed reformatting. For date/datetime the direction
// reverses which configured format is parsed and which is rendered.
func applyFormat(value any, m *integration.FieldMapping, dir Direction) (any, error) {
	switch m.ConfigString("format_type") {
	case "date", "datetime":
		inFormat := m.ConfigString("input_format")
		outFormat := m.ConfigString("output_format")
		if inFormat == "" {
			inFormat = time.RFC3339
		}
		if outFormat == "" {
			outFormat = time.RFC3339
		}
		if dir == ToLocal {
			inFormat, outFormat = outFormat, inFormat
		}
		parsed, err := time.Parse(inFormat, toString(value))
		if err != nil {
			return nil, fmt.Errorf("%w: unparseable date %q", integration.ErrValidation, toString(value))
		}
		return parsed.Format(outFormat), nil

	case "number", "currency":
		d, ok := parseNumber(value)
		if !ok {
			return nil, nil
		}
		decimals := int32(2)
		if v, ok := m.Config["decimals"]; ok {
			decimals = int32(toInt(v))
		}
		f, _ := d.Round(decimals).Float64()
		return f, nil

	case "phone":
		var digits strings.Builder
		for _, r := range toString(value) {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		return digits.String(), nil

	case "email":
		return strings.ToLower(strings.TrimSpace(toString(value))), nil

	default:
		return nil, fmt.Errorf("%w: unknown format type %q", integration.ErrInvalidTransform, m.ConfigString("format_type"))
	}
}

// ---------------------------------------------------------------------------
// lookup
// ---------------------------------------------------------------------------

// applyLookup translates enums through the configured table. Inbound the
// table is used in reverse. Unmapped values fall back to the configured
// default, which may be null.
func applyLookup(value any, m *integration.FieldMapping, dir Direction) any {
	table, _ := m.Config["table"].(map[string]any)
	key := toString(value)

	if dir == ToRemote {
		if mapped, ok := table[key]; ok {
			return mapped
		}
		return m.Config["default"]
	}

	for local, remote := range table {
		if toString(remote) == key {
			return local
		}
	}
	return m.Config["default"]
}

// ---------------------------------------------------------------------------
// compute
// ---------------------------------------------------------------------------

// applyCompute runs one whitelisted unary or parameterized operation. Any
// other expression string is rejected rather than evaluated.
func applyCompute(value any, expression string) (any, error) {
	switch expression {
	case "upper":
		return strings.ToUpper(toString(value)), nil
	case "lower":
		return strings.ToLower(toString(value)), nil
	case "trim":
		return strings.TrimSpace(toString(value)), nil
	case "bool":
		return toBool(value), nil
	case "int":
		return toInt(value), nil
	case "float":
		d, ok := parseNumber(value)
		if !ok {
			return nil, nil
		}
		f, _ := d.Float64()
		return f, nil
	case "str":
		return toString(value), nil
	}

	op, arg, found := strings.Cut(expression, ":")
	if !found {
		return nil, fmt.Errorf("%w: unsupported compute expression %q", integration.ErrInvalidTransform, expression)
	}

	switch op {
	case "multiply", "divide", "add", "subtract", "round":
		operand, err := decimal.NewFromString(strings.TrimSpace(arg))
		if err != nil {
			return nil, fmt.Errorf("%w: bad numeric operand %q", integration.ErrInvalidTransform, arg)
		}
		d, ok := parseNumber(value)
		if !ok {
			return nil, nil
		}
		var result decimal.Decimal
		switch op {
		case "multiply":
			result = d.Mul(operand)
		case "divide":
			if operand.IsZero() {
				return nil, fmt.Errorf("%w: divide by zero", integration.ErrInvalidTransform)
			}
			result = d.Div(operand)
		case "add":
			result = d.Add(operand)
		case "subtract":
			result = d.Sub(operand)
		case "round":
			result = d.Round(int32(operand.IntPart()))
		}
		f, _ := result.Float64()
		return f, nil

	case "prefix":
		return arg + toString(value), nil
	case "suffix":
		return toString(value) + arg, nil
	case "replace":
		old, replacement, ok := strings.Cut(arg, ",")
		if !ok {
			return nil, fmt.Errorf("%w: replace expects \"old,new\"", integration.ErrInvalidTransform)
		}
		return strings.ReplaceAll(toString(value), old, replacement), nil

	default:
		return nil, fmt.Errorf("%w: unsupported compute expression %q", integration.ErrInvalidTransform, expression)
	}
}

// ---------------------------------------------------------------------------
// concat / split
// ---------------------------------------------------------------------------

// applyConcat joins multiple source fields into one target value. The
// source paths come from the mapping config; mappings using concat are
// typically restricted to one direction.
func applyConcat(record integration.Record, m *integration.FieldMapping) (any, error) {
	fields, _ := m.Config["fields"].([]any)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: concat requires source fields", integration.ErrInvalidTransform)
	}
	separator := " "
	if s, ok := m.Config["separator"].(string); ok {
		separator = s
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if v := record.GetPath(toString(f)); v != nil {
			parts = append(parts, toString(v))
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return strings.Join(parts, separator), nil
}

// applySplit extracts one segment from a separated string, by index or the
// last segment.
func applySplit(value any, m *integration.FieldMapping) (any, error) {
	separator := " "
	if s, ok := m.Config["separator"].(string); ok {
		separator = s
	}
	parts := strings.Split(toString(value), separator)

	if last, ok := m.Config["last"].(bool); ok && last {
		return parts[len(parts)-1], nil
	}
	idx := toInt(m.Config["index"])
	if idx < 0 || idx >= int64(len(parts)) {
		return nil, nil
	}
	return parts[idx], nil
}

// ---------------------------------------------------------------------------
// cast
// ---------------------------------------------------------------------------

// applyCast converts between primitive shapes, yielding null on failure
// rather than an error; a required outbound field then fails the record at
// the transformer level.
func applyCast(value any, m *integration.FieldMapping) (any, error) {
	switch m.ConfigString("to") {
	case "string":
		return toString(value), nil
	case "integer":
		d, ok := parseNumber(value)
		if !ok {
			return nil, nil
		}
		return d.IntPart(), nil
	case "float":
		d, ok := parseNumber(value)
		if !ok {
			return nil, nil
		}
		f, _ := d.Float64()
		return f, nil
	case "boolean":
		return toBool(value), nil
	case "array":
		if arr, ok := value.([]any); ok {
			return arr, nil
		}
		return []any{value}, nil
	case "json":
		switch value.(type) {
		case map[string]any, []any:
			return value, nil
		}
		var parsed any
		if err := json.Unmarshal([]byte(toString(value)), &parsed); err != nil {
			return nil, nil
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("%w: unknown cast target %q", integration.ErrInvalidTransform, m.ConfigString("to"))
	}
}

// ---------------------------------------------------------------------------
// Coercion helpers
// ---------------------------------------------------------------------------

func toString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprintf("%v", n)
	}
}

func toInt(v any) int64 {
	d, ok := parseNumber(v)
	if !ok {
		return 0
	}
	return d.IntPart()
}

func toBool(v any) bool {
	switch n := v.(type) {
	case bool:
		return n
	case string:
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "true", "yes", "y", "1", "on":
			return true
		}
		return false
	case float64:
		return n != 0
	case int:
		return n != 0
	case int64:
		return n != 0
	default:
		return false
	}
}

// currencyStripper removes symbols and separators commonly found in money
// strings before numeric parsing.
var currencyStripper = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "")

func parseNumber(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case decimal.Decimal:
		return n, true
	case string:
		d, err := decimal.NewFromString(currencyStripper.Replace(strings.TrimSpace(n)))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case bool:
		if n {
			return decimal.NewFromInt(1), true
		}
		return decimal.NewFromInt(0), true
	default:
		return decimal.Decimal{}, false
	}
}
