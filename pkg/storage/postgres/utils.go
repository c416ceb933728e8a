package postgres

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// vectorToString converts a vector to PostgreSQL vector format: "[0.1,0.2,...]".
func vectorToString(embedding []float64) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// vectorParam returns the query parameter for an embedding, NULL when nil.
func vectorParam(embedding []float64) interface{} {
	if embedding == nil {
		return sql.NullString{}
	}
	return vectorToString(embedding)
}

// int64Array wraps an ID slice for use as a PostgreSQL array parameter.
func int64Array(ids []int64) interface{} {
	return pq.Array(ids)
}
