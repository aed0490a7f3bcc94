package sqlite

import (
	"encoding/binary"
	"fmt"
)

// encodeVector stores an embedding as little-endian float32s.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	b, _ := binary.Append(nil, binary.LittleEndian, v)
	return b
}

// decodeVector reverses encodeVector. A length that is not a multiple of
// four means the blob was truncated.
func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes is not a float32 vector", len(b))
	}
	v := make([]float32, len(b)/4)
	if _, err := binary.Decode(b, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return v, nil
}
