package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// IntList stores an ordered list of ints as a JSON text column.
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		l = IntList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *IntList) Scan(value any) error {
	return scanJSON(value, l)
}

func (IntList) GormDataType() string { return "text" }

// ContainsInt reports whether v is present in the list.
func (l IntList) ContainsInt(v int) bool {
	for _, candidate := range l {
		if candidate == v {
			return true
		}
	}
	return false
}

// StringList stores an ordered list of ids as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(value any) error {
	return scanJSON(value, l)
}

func (StringList) GormDataType() string { return "text" }

// Contains reports whether id is present in the list.
func (l StringList) Contains(id string) bool {
	for _, candidate := range l {
		if candidate == id {
			return true
		}
	}
	return false
}

// JSONMap stores a free-form payload object as a JSON text column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		m = JSONMap{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *JSONMap) Scan(value any) error {
	return scanJSON(value, m)
}

func (JSONMap) GormDataType() string { return "text" }

func scanJSON(value, target any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, target)
	case string:
		return json.Unmarshal([]byte(v), target)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}
