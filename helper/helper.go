package helper

import (
	"encoding/json"
	"strconv"
)

// SafeDivide divides a by b, treating a division by zero or a value that is
// not a number as zero. Templates use it for unit conversions of label and
// annotation values.
func SafeDivide(a interface{}, b float64) float64 {
	if b == 0 {
		return 0
	}

	var af float64
	switch v := a.(type) {
	case float64:
		af = v
	case int:
		af = float64(v)
	case int64:
		af = float64(v)
	case json.Number:
		f, _ := v.Float64()
		af = f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		af = f
	default:
		return 0
	}

	return af / b
}
