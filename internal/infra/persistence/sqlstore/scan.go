package sqlstore

import (
	"fmt"
	"strconv"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// timeValue scans timestamps delivered either natively or as text.
type timeValue struct {
	t time.Time
}

func (v *timeValue) Scan(src any) error {
	switch s := src.(type) {
	case time.Time:
		v.t = s.UTC()
		return nil
	case string:
		return v.parse(s)
	case []byte:
		return v.parse(string(s))
	case nil:
		return fmt.Errorf("unexpected NULL timestamp")
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (v *timeValue) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			v.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}

// textValue scans any scalar column into its textual form. It keeps numeric
// columns such as gc_content in the representation the store returned.
type textValue struct {
	s string
}

func (v *textValue) Scan(src any) error {
	switch s := src.(type) {
	case string:
		v.s = s
	case []byte:
		v.s = string(s)
	case int64:
		v.s = strconv.FormatInt(s, 10)
	case float64:
		v.s = strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return fmt.Errorf("unexpected NULL value")
	default:
		v.s = fmt.Sprint(s)
	}
	return nil
}
