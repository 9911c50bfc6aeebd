package payload

import (
	"fmt"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

// SkipReason says why a data member was left out of the payload.
type SkipReason int

const (
	SkipArray SkipReason = iota + 1
	SkipObject
	SkipNull
)

func (r SkipReason) String() string {
	switch r {
	case SkipArray:
		return "array"
	case SkipObject:
		return "object"
	case SkipNull:
		return "null"
	}
	return fmt.Sprintf("SkipReason(%d)", int(r))
}

type Skip struct {
	Key    string
	Reason SkipReason
}

type DataParseError struct {
	Data string
	// Reason is empty when the fragment is not valid JSON at all.
	Reason string
}

func (e *DataParseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("could not parse data %q: %s", e.Data, e.Reason)
	}
	return fmt.Sprintf("could not parse data %q: invalid json", e.Data)
}

// DecodeData decodes a JSON data fragment into payload fields. Only scalar
// members are kept: arrays, nested objects and nulls are reported in the
// returned skip list instead. A fragment that is valid JSON but not an
// object contributes nothing.
func DecodeData(data string) (Payload, []Skip, error) {
	if !gjson.Valid(data) {
		return nil, nil, &DataParseError{Data: data}
	}

	fields := make(Payload)
	doc := gjson.Parse(data)
	if !doc.IsObject() {
		return fields, nil, nil
	}

	var (
		skipped []Skip
		bad     *DataParseError
	)
	doc.ForEach(func(key, val gjson.Result) bool {
		k := key.String()

		var reason SkipReason
		switch val.Type {
		case gjson.String:
			fields[k] = StringValue(val.String())
			return true
		case gjson.Number:
			if math.IsInf(val.Num, 0) || math.IsNaN(val.Num) {
				bad = &DataParseError{Data: data, Reason: fmt.Sprintf("number out of range for %q", k)}
				return false
			}
			fields[k] = numberValue(val)
			return true
		case gjson.True, gjson.False:
			fields[k] = BoolValue(val.Bool())
			return true
		case gjson.Null:
			reason = SkipNull
		default:
			reason = SkipObject
			if val.IsArray() {
				reason = SkipArray
			}
		}

		// a later duplicate replaces an earlier member, even when it is skipped
		delete(fields, k)
		skipped = append(skipped, Skip{Key: k, Reason: reason})
		return true
	})
	if bad != nil {
		return nil, nil, bad
	}

	return fields, skipped, nil
}

func numberValue(val gjson.Result) Value {
	if i, err := strconv.ParseInt(val.Raw, 10, 64); err == nil {
		return IntValue(i)
	}
	return FloatValue(val.Num)
}
