package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Encode converts a native value to the register's payload bytes. The
// descriptor's validation predicate runs first; its rejection is final and
// never retried by the pipeline.
func Encode(d Descriptor, value any) ([]byte, error) {
	if d.Validate != nil {
		if err := d.Validate(value); err != nil {
			return nil, fmt.Errorf("registry: %s rejects value: %w", d.Name, err)
		}
	}

	switch d.Type {
	case Float32:
		f, err := toFloat32(value)
		if err != nil {
			return nil, encodeErr(d, err)
		}
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, math.Float32bits(f))
		return out, nil

	case Uint8, Enum8:
		u, err := toUint64(value, math.MaxUint8)
		if err != nil {
			return nil, encodeErr(d, err)
		}
		return []byte{byte(u)}, nil

	case Uint16:
		u, err := toUint64(value, math.MaxUint16)
		if err != nil {
			return nil, encodeErr(d, err)
		}
		out := make([]byte, 2)
		binary.BigEndian.PutUint16(out, uint16(u))
		return out, nil

	case Uint32:
		u, err := toUint64(value, math.MaxUint32)
		if err != nil {
			return nil, encodeErr(d, err)
		}
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, uint32(u))
		return out, nil

	case String:
		s, ok := value.(string)
		if !ok {
			return nil, encodeErr(d, fmt.Errorf("want string, got %T", value))
		}
		return []byte(s), nil

	default:
		return nil, fmt.Errorf("registry: %s has unsupported wire type %s", d.Name, d.Type)
	}
}

// Decode converts a register payload to its native value: float32, uint8,
// uint16, uint32 or string. Enum8 decodes to the raw uint8; use
// Descriptor.Label for display.
func Decode(d Descriptor, data []byte) (any, error) {
	switch d.Type {
	case Float32:
		if len(data) != 4 {
			return nil, decodeErr(d, data, 4)
		}
		return math.Float32frombits(binary.BigEndian.Uint32(data)), nil

	case Uint8, Enum8:
		if len(data) != 1 {
			return nil, decodeErr(d, data, 1)
		}
		return data[0], nil

	case Uint16:
		if len(data) != 2 {
			return nil, decodeErr(d, data, 2)
		}
		return binary.BigEndian.Uint16(data), nil

	case Uint32:
		if len(data) != 4 {
			return nil, decodeErr(d, data, 4)
		}
		return binary.BigEndian.Uint32(data), nil

	case String:
		// Devices pad string registers with trailing NULs.
		return string(bytes.TrimRight(data, "\x00")), nil

	default:
		return nil, fmt.Errorf("registry: %s has unsupported wire type %s", d.Name, d.Type)
	}
}

func encodeErr(d Descriptor, err error) error {
	return fmt.Errorf("registry: encoding %s (%s): %w", d.Name, d.Type, err)
}

func decodeErr(d Descriptor, data []byte, want int) error {
	return fmt.Errorf("registry: decoding %s (%s): want %d payload bytes, got %d", d.Name, d.Type, want, len(data))
}

func toFloat32(value any) (float32, error) {
	switch v := value.(type) {
	case float32:
		return v, nil
	case float64:
		return float32(v), nil
	case int:
		return float32(v), nil
	default:
		return 0, fmt.Errorf("want float32, got %T", value)
	}
}

func toUint64(value any, max uint64) (uint64, error) {
	var u uint64
	switch v := value.(type) {
	case uint8:
		u = uint64(v)
	case uint16:
		u = uint64(v)
	case uint32:
		u = uint64(v)
	case uint64:
		u = v
	case uint:
		u = uint64(v)
	case int:
		if v < 0 {
			return 0, fmt.Errorf("negative value %d", v)
		}
		u = uint64(v)
	default:
		return 0, fmt.Errorf("want unsigned integer, got %T", value)
	}
	if u > max {
		return 0, fmt.Errorf("value %d exceeds maximum %d", u, max)
	}
	return u, nil
}
