package repository

import (
	"strconv"
	"strings"
)

// VectorToString converts a vector to the pgvector text format [1,2.5,3].
func VectorToString(vector []float32) string {
	if len(vector) == 0 {
		return "[]"
	}

	var sb strings.Builder
	sb.WriteByte('[')
	for i, val := range vector {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(val), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
