package redisstore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
)

// encodeValue renders a types.Value to the string stored in a Redis hash's
// "value" field. Scalars use their natural textual form; arrays and blobs
// round-trip through JSON/base64 since Redis hash fields are flat strings.
func encodeValue(v types.Value) (string, error) {
	switch tv := v.(type) {
	case types.Double:
		b, err := json.Marshal(float64(tv))
		return string(b), err
	case types.Integer:
		return fmt.Sprintf("%d", int32(tv)), nil
	case types.Boolean:
		return fmt.Sprintf("%t", bool(tv)), nil
	case types.LongInteger:
		return fmt.Sprintf("%d", int64(tv)), nil
	case types.String:
		return string(tv), nil
	case types.BinaryBlob:
		return base64.StdEncoding.EncodeToString(tv), nil
	case types.DateTime:
		return time.Time(tv).UTC().Format(time.RFC3339Nano), nil
	case types.DoubleArray:
		b, err := json.Marshal([]float64(tv))
		return string(b), err
	case types.IntegerArray:
		b, err := json.Marshal([]int32(tv))
		return string(b), err
	case types.BooleanArray:
		b, err := json.Marshal([]bool(tv))
		return string(b), err
	case types.LongIntegerArray:
		b, err := json.Marshal([]int64(tv))
		return string(b), err
	case types.StringArray:
		b, err := json.Marshal([]string(tv))
		return string(b), err
	case types.BinaryBlobArray:
		encoded := make([]string, len(tv))
		for i, blob := range tv {
			encoded[i] = base64.StdEncoding.EncodeToString(blob)
		}
		b, err := json.Marshal(encoded)
		return string(b), err
	case types.DateTimeArray:
		encoded := make([]string, len(tv))
		for i, t := range tv {
			encoded[i] = t.UTC().Format(time.RFC3339Nano)
		}
		b, err := json.Marshal(encoded)
		return string(b), err
	default:
		return "", fmt.Errorf("redisstore: unsupported value kind %v", v.Kind())
	}
}

func decodeValue(kind types.Kind, raw string) (types.Value, error) {
	switch kind {
	case types.KindDouble:
		var f float64
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, err
		}
		return types.Double(f), nil
	case types.KindInteger:
		var n int32
		if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
			return nil, err
		}
		return types.Integer(n), nil
	case types.KindBoolean:
		return types.Boolean(raw == "true"), nil
	case types.KindLongInteger:
		var n int64
		if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
			return nil, err
		}
		return types.LongInteger(n), nil
	case types.KindString:
		return types.String(raw), nil
	case types.KindBinaryBlob:
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, err
		}
		return types.BinaryBlob(decoded), nil
	case types.KindDateTime:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, err
		}
		return types.DateTime(t), nil
	case types.KindDoubleArray:
		var arr []float64
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return nil, err
		}
		return types.DoubleArray(arr), nil
	case types.KindIntegerArray:
		var arr []int32
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return nil, err
		}
		return types.IntegerArray(arr), nil
	case types.KindBooleanArray:
		var arr []bool
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return nil, err
		}
		return types.BooleanArray(arr), nil
	case types.KindLongIntegerArray:
		var arr []int64
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return nil, err
		}
		return types.LongIntegerArray(arr), nil
	case types.KindStringArray:
		var arr []string
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return nil, err
		}
		return types.StringArray(arr), nil
	case types.KindBinaryBlobArray:
		var encoded []string
		if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
			return nil, err
		}
		blobs := make([][]byte, len(encoded))
		for i, s := range encoded {
			decoded, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, err
			}
			blobs[i] = decoded
		}
		return types.BinaryBlobArray(blobs), nil
	case types.KindDateTimeArray:
		var encoded []string
		if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
			return nil, err
		}
		times := make([]time.Time, len(encoded))
		for i, s := range encoded {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, err
			}
			times[i] = t
		}
		return types.DateTimeArray(times), nil
	default:
		return nil, fmt.Errorf("redisstore: unsupported kind %v", kind)
	}
}
