package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Overlay field names, as they appear on the wire and in the store.
const (
	FieldX         = "x"
	FieldY         = "y"
	FieldWidth     = "width"
	FieldHeight    = "height"
	FieldType      = "type"
	FieldContent   = "content"
	FieldFontSize  = "fontSize"
	FieldFontColor = "fontColor"
	FieldOpacity   = "opacity"
	FieldZIndex    = "zIndex"
)

// IDKey is the JSON key carrying the overlay identifier.
const IDKey = "_id"

var (
	requiredFields = []string{FieldX, FieldY, FieldWidth, FieldHeight, FieldType, FieldContent}
	optionalFields = []string{FieldFontSize, FieldFontColor, FieldOpacity, FieldZIndex}
	knownFields    = slices.Concat(requiredFields, optionalFields)
)

// KnownFields returns all ten mutable field names in canonical order.
func KnownFields() []string { return slices.Clone(knownFields) }

func IsKnownField(name string) bool {
	return slices.Contains(knownFields, name)
}

// Fields holds overlay attribute values keyed by field name. Values are opaque:
// numbers arrive as json.Number, content may be a string or a nested structure.
type Fields map[string]any

// Overlay is a positioned annotation rendered over a video frame.
type Overlay struct {
	ID     string
	Fields Fields
}

// MissingRequired lists the required fields absent from input. A key present
// with a null value counts as present.
func MissingRequired(input map[string]any) []string {
	var missing []string
	for _, name := range requiredFields {
		if _, ok := input[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// NewOverlayFields builds the full field set for a new overlay. Unknown keys are
// dropped and optional fields that were not supplied are stored as null.
func NewOverlayFields(input map[string]any) (Fields, error) {
	if missing := MissingRequired(input); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingFields, missing)
	}

	fields := make(Fields, len(knownFields))
	for _, name := range knownFields {
		fields[name] = input[name]
	}
	return fields, nil
}

// NewPatch keeps only the known fields of input. It fails with ErrNoValidFields
// when nothing is left.
func NewPatch(input map[string]any) (Fields, error) {
	patch := make(Fields)
	for name, value := range input {
		if IsKnownField(name) {
			patch[name] = value
		}
	}
	if len(patch) == 0 {
		return nil, ErrNoValidFields
	}
	return patch, nil
}

// Names returns the field names set in f, in canonical order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for _, name := range knownFields {
		if _, ok := f[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// MarshalJSON renders the identifier under "_id" followed by all ten known
// fields. Fields that were never set are emitted as null.
func (o Overlay) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	if err := writeMember(&buf, IDKey, o.ID); err != nil {
		return nil, err
	}
	for _, name := range knownFields {
		buf.WriteByte(',')
		if err := writeMember(&buf, name, o.Fields[name]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode overlay field %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// UnmarshalJSON accepts the identifier under "_id" or "id". Unknown keys are ignored.
func (o *Overlay) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	o.ID = ""
	for _, key := range []string{IDKey, "id"} {
		if id, ok := raw[key].(string); ok && id != "" {
			o.ID = id
			break
		}
	}

	o.Fields = make(Fields, len(knownFields))
	for name, value := range raw {
		if IsKnownField(name) {
			o.Fields[name] = value
		}
	}
	return nil
}
