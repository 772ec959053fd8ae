package transform

import (
	"fmt"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// Direction selects which way a record is being transformed.
type Direction int

const (
	// ToRemote transforms local→remote (outbound).
	ToRemote Direction = iota
	// ToLocal transforms remote→local (inbound).
	ToLocal
)

// Transformer applies a SyncConfig's field mappings to records. It is
// stateless and safe for concurrent use.
type Transformer struct{}

// NewTransformer creates a Transformer.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// ToRemote transforms a local record into the remote shape. A required
// mapping whose transformed value is null fails the whole record with a
// validation error naming the field.
func (t *Transformer) ToRemote(record integration.Record, mappings []integration.FieldMapping) (integration.Record, error) {
	return t.apply(record, mappings, ToRemote)
}

// ToLocal transforms a remote record into the local shape. Required-field
// violations are tolerated inbound: remote data quality is outside this
// system's control, so the local record is produced with nulls.
func (t *Transformer) ToLocal(record integration.Record, mappings []integration.FieldMapping) (integration.Record, error) {
	return t.apply(record, mappings, ToLocal)
}

func (t *Transformer) apply(record integration.Record, mappings []integration.FieldMapping, dir Direction) (integration.Record, error) {
	out := integration.Record{}
	for i := range mappings {
		m := &mappings[i]
		if dir == ToRemote && !m.Direction.AppliesOutbound() {
			continue
		}
		if dir == ToLocal && !m.Direction.AppliesInbound() {
			continue
		}

		value, err := t.applyMapping(record, m, dir)
		if err != nil {
			return nil, err
		}

		if value == nil && m.Default != nil {
			value = m.Default
		}
		if value == nil {
			if m.Required && dir == ToRemote {
				return nil, requiredFieldError(sourceField(m, dir))
			}
			continue
		}
		out.SetPath(targetField(m, dir), value)
	}
	return out, nil
}

// applyMapping resolves the source value and runs the configured transform.
func (t *Transformer) applyMapping(record integration.Record, m *integration.FieldMapping, dir Direction) (any, error) {
	switch m.Transform {
	case integration.TransformConstant:
		return m.Config["value"], nil
	case integration.TransformConcat:
		return applyConcat(record, m)
	}

	value := record.GetPath(sourceField(m, dir))
	if value == nil {
		return nil, nil
	}

	switch m.Transform {
	case integration.TransformDirect:
		return value, nil
	case integration.TransformFormat:
		return applyFormat(value, m, dir)
	case integration.TransformLookup:
		return applyLookup(value, m, dir), nil
	case integration.TransformCompute:
		return applyCompute(value, m.ConfigString("expression"))
	case integration.TransformSplit:
		return applySplit(value, m)
	case integration.TransformCast:
		return applyCast(value, m)
	default:
		return nil, fmt.Errorf("%w: %s", integration.ErrInvalidTransform, m.Transform)
	}
}

// sourceField returns the side the value is read from for a direction.
func sourceField(m *integration.FieldMapping, dir Direction) string {
	if dir == ToRemote {
		return m.LocalField
	}
	return m.RemoteField
}

// targetField returns the side the value is written to for a direction.
func targetField(m *integration.FieldMapping, dir Direction) string {
	if dir == ToRemote {
		return m.RemoteField
	}
	return m.LocalField
}

func requiredFieldError(field string) error {
	return fmt.Errorf("%w: required field %q is null", integration.ErrValidation, field)
}
