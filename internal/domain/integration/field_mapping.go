package integration

import (
	"github.com/google/uuid"

	"github.com/ledgercrm/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// TransformType
// ---------------------------------------------------------------------------

// TransformType selects the whitelisted transformation applied to a field.
// The set is fixed; anything outside it is rejected rather than evaluated.
type TransformType string

const (
	TransformDirect   TransformType = "DIRECT"
	TransformFormat   TransformType = "FORMAT"
	TransformLookup   TransformType = "LOOKUP"
	TransformCompute  TransformType = "COMPUTE"
	TransformConcat   TransformType = "CONCAT"
	TransformSplit    TransformType = "SPLIT"
	TransformCast     TransformType = "CAST"
	TransformConstant TransformType = "CONSTANT"
)

// IsValid returns true if the transform type is valid
func (t TransformType) IsValid() bool {
	switch t {
	case TransformDirect, TransformFormat, TransformLookup, TransformCompute,
		TransformConcat, TransformSplit, TransformCast, TransformConstant:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// MappingDirection
// ---------------------------------------------------------------------------

// MappingDirection restricts a mapping to one transformation direction.
type MappingDirection string

const (
	MappingBidirectional MappingDirection = "BIDIRECTIONAL"
	MappingInbound       MappingDirection = "INBOUND"
	MappingOutbound      MappingDirection = "OUTBOUND"
)

// IsValid returns true if the mapping direction is valid
func (d MappingDirection) IsValid() bool {
	switch d {
	case MappingBidirectional, MappingInbound, MappingOutbound:
		return true
	default:
		return false
	}
}

// AppliesInbound reports whether the mapping runs remote→local.
func (d MappingDirection) AppliesInbound() bool {
	return d == MappingBidirectional || d == MappingInbound
}

// AppliesOutbound reports whether the mapping runs local→remote.
func (d MappingDirection) AppliesOutbound() bool {
	return d == MappingBidirectional || d == MappingOutbound
}

// ---------------------------------------------------------------------------
// FieldMapping
// ---------------------------------------------------------------------------

// FieldMapping is one declarative field translation rule of a SyncConfig.
// Local and remote fields are dot-path addressable into nested records.
type FieldMapping struct {
	shared.BaseEntity
	SyncConfigID uuid.UUID
	LocalField   string
	RemoteField  string
	Transform    TransformType
	// Config parameterizes the transform (formats, lookup table, compute
	// expression, separator, cast target, constant value).
	Config    map[string]any
	Direction MappingDirection
	// Required aborts an outbound record transform when the transformed
	// value is null. Inbound required violations are tolerated.
	Required bool
	// Default substitutes a null transformed value when set.
	Default any
}

// NewFieldMapping creates a validated field mapping.
func NewFieldMapping(syncConfigID uuid.UUID, localField, remoteField string, transform TransformType, config map[string]any, direction MappingDirection, required bool, defaultValue any) (*FieldMapping, error) {
	if transform != TransformConstant && localField == "" && remoteField == "" {
		return nil, shared.ErrInvalidInput
	}
	if !transform.IsValid() {
		return nil, ErrInvalidTransform
	}
	if !direction.IsValid() {
		direction = MappingBidirectional
	}
	if config == nil {
		config = map[string]any{}
	}
	return &FieldMapping{
		BaseEntity:   shared.NewBaseEntity(),
		SyncConfigID: syncConfigID,
		LocalField:   localField,
		RemoteField:  remoteField,
		Transform:    transform,
		Config:       config,
		Direction:    direction,
		Required:     required,
		Default:      defaultValue,
	}, nil
}

// ConfigString returns a string config value, empty when absent.
func (m *FieldMapping) ConfigString(key string) string {
	if v, ok := m.Config[key].(string); ok {
		return v
	}
	return ""
}
