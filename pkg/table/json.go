package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

var null = []byte("null")

func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Kind == Text {
		return json.Marshal(c.Label)
	}
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return null, nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts strings, numbers and null (a missing number).
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, null) {
		*c = Missing()
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*c = Str(v)
	case float64:
		*c = Num(v)
	case bool:
		if v {
			*c = Num(1)
		} else {
			*c = Num(0)
		}
	default:
		return fmt.Errorf("unsupported cell value %s", string(data))
	}
	return nil
}
