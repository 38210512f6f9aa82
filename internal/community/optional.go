package community

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var jsonNull = []byte("null")

// Optional distinguishes a field absent from a JSON patch (Set == false) from one that is
// present with a value or with an explicit null (Set == true, Value == nil).
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present Optional holding value.
func Some[T any](value T) Optional[T] {
	return Optional[T]{Set: true, Value: &value}
}

// Null returns a present Optional holding an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		o.Value = nil
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	o.Value = &value
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return jsonNull, nil
	}
	return json.Marshal(*o.Value)
}

// column returns the value to write to a nullable column.
func (o Optional[T]) column() any {
	if o.Value == nil {
		return nil
	}
	return *o.Value
}

const timestampLayout = time.RFC3339Nano

var errInvalidDate = errors.New("invalid date")

// accepted input layouts for event dates; naive values are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errInvalidDate, raw)
}

func formatTimestamp(value time.Time) string {
	return value.UTC().Format(timestampLayout)
}
