package diet

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a lenient JSON number. Generators sometimes quote numbers or emit
// null; those decode to the numeric value or 0 instead of failing the whole
// plan. Values that are not finite, such as "NaN", decode to 0.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*n = 0
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = finite(f)
	default:
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			*n = 0
			return nil
		}
		*n = finite(f)
	}
	return nil
}

func finite(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Number(f)
}

// String formats the number without trailing zeros, e.g. 150 or 72.5.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Float returns n as a float64.
func (n Number) Float() float64 {
	return float64(n)
}

// Text is a lenient JSON string: numbers and booleans keep their literal
// form, null and structured values decode to "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*t = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{', '[', 'n':
		*t = ""
	default:
		*t = Text(b)
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}
