package storage

import (
	"math"
	"sort"
	"strings"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
//
// Returns 0 when the vectors have different lengths or either has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// LexicalScore calculates a token-overlap relevance score between a query and
// a content string.
//
// An exact match (after whitespace normalization) scores 1.0; otherwise the
// score is the fraction of query tokens present in the content. An empty
// query scores 0 against everything, which lets callers list recent records
// by issuing an empty query.
func LexicalScore(query, content string) float64 {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	if strings.Join(tokenize(content), " ") == strings.Join(queryTokens, " ") {
		return 1.0
	}

	contentSet := make(map[string]struct{})
	for _, tok := range tokenize(content) {
		contentSet[tok] = struct{}{}
	}

	matched := 0
	for _, tok := range queryTokens {
		if _, ok := contentSet[tok]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(queryTokens))
}

// ScoreRecord assigns a relevance score to a record for the given query.
//
// Vector similarity is used when both the query embedding and the record
// embedding are present; otherwise the score falls back to lexical token
// overlap against the query text.
func ScoreRecord(record *MemoryRecord, embedding []float64, query string) float64 {
	if len(embedding) > 0 && len(record.Embedding) > 0 {
		return CosineSimilarity(embedding, record.Embedding)
	}
	return LexicalScore(query, record.Content)
}

// RankRecords sorts records by score (descending), breaking ties by recency
// (most recent first), and truncates the result to limit entries.
//
// Records below minScore are dropped. A limit of 0 means no truncation.
func RankRecords(records []*MemoryRecord, minScore float64, limit int) []*MemoryRecord {
	kept := records[:0]
	for _, rec := range records {
		if rec.Score >= minScore {
			kept = append(kept, rec)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		if !kept[i].CreatedAt.Equal(kept[j].CreatedAt) {
			return kept[i].CreatedAt.After(kept[j].CreatedAt)
		}
		return kept[i].ID > kept[j].ID
	})

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}

	return kept
}

// tokenize lowercases and splits text into alphanumeric tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
