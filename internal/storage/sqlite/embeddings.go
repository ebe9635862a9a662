// ABOUTME: Vector encoding for SQLite BLOB columns
// ABOUTME: Vectors are stored as little-endian float32 values
package sqlite

import (
	"encoding/binary"
	"math"

	"github.com/m-mizutani/goerr/v2"
)

// vectorToBlob converts a float32 slice to a binary blob
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// blobToVector converts a binary blob back to a float32 slice
func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, goerr.New("vector blob length is not a multiple of 4", goerr.V("length", len(blob)))
	}
	count := len(blob) / 4
	vector := make([]float32, count)
	for i := 0; i < count; i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
