package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ConfigKind tells which variant a ConfigValue holds.
type ConfigKind string

const (
	ConfigKindArray  ConfigKind = "array"
	ConfigKindObject ConfigKind = "object"
)

var ErrInvalidConfig = errors.New("config must be an array of objects or an object")

// ConfigValue is a binding's configuration: either an ordered list of
// entries or a single free-form object.
type ConfigValue struct {
	Kind    ConfigKind
	Entries []map[string]interface{}
	Object  map[string]interface{}
}

// ArrayConfig builds the array variant.
func ArrayConfig(entries []map[string]interface{}) ConfigValue {
	if entries == nil {
		entries = []map[string]interface{}{}
	}
	return ConfigValue{Kind: ConfigKindArray, Entries: entries}
}

// ObjectConfig builds the object variant.
func ObjectConfig(object map[string]interface{}) ConfigValue {
	if object == nil {
		object = map[string]interface{}{}
	}
	return ConfigValue{Kind: ConfigKindObject, Object: object}
}

// IsArray reports whether entry-level operations apply.
func (v ConfigValue) IsArray() bool {
	return v.Kind != ConfigKindObject
}

func (v ConfigValue) MarshalJSON() ([]byte, error) {
	if v.Kind == ConfigKindObject {
		if v.Object == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.Object)
	}
	if v.Entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.Entries)
}

func (v *ConfigValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidConfig
	}

	switch data[0] {
	case '[':
		var entries []map[string]interface{}
		if err := json.Unmarshal(data, &entries); err != nil {
			return ErrInvalidConfig
		}
		for _, e := range entries {
			if e == nil {
				return ErrInvalidConfig
			}
		}
		*v = ArrayConfig(entries)
		return nil
	case '{':
		var object map[string]interface{}
		if err := json.Unmarshal(data, &object); err != nil {
			return ErrInvalidConfig
		}
		*v = ObjectConfig(object)
		return nil
	}
	return ErrInvalidConfig
}
