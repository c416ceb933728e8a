package core

import "github.com/memchat/memchat-go/pkg/storage"

// toStorageRecord converts a core.MemoryRecord to a storage.MemoryRecord.
func toStorageRecord(record *MemoryRecord) *storage.MemoryRecord {
	return &storage.MemoryRecord{
		ID:          record.ID,
		UserID:      record.UserID,
		Content:     record.Content,
		Embedding:   record.Embedding,
		CreatedAt:   record.CreatedAt,
		AccessCount: record.AccessCount,
		Score:       record.Score,
	}
}

// fromStorageRecord converts a storage.MemoryRecord to a core.MemoryRecord.
func fromStorageRecord(record *storage.MemoryRecord) *MemoryRecord {
	return &MemoryRecord{
		ID:          record.ID,
		UserID:      record.UserID,
		Content:     record.Content,
		Embedding:   record.Embedding,
		CreatedAt:   record.CreatedAt,
		AccessCount: record.AccessCount,
		Score:       record.Score,
	}
}

// fromStorageRecords converts a slice of storage records to core records.
func fromStorageRecords(records []*storage.MemoryRecord) []*MemoryRecord {
	result := make([]*MemoryRecord, len(records))
	for i, record := range records {
		result[i] = fromStorageRecord(record)
	}
	return result
}

// toStorageChunk converts a core.DocumentChunk to a storage.DocumentChunk.
func toStorageChunk(chunk *DocumentChunk) *storage.DocumentChunk {
	return &storage.DocumentChunk{
		DocumentID: chunk.DocumentID,
		UserID:     chunk.UserID,
		Sequence:   chunk.Sequence,
		Content:    chunk.Content,
		Embedding:  chunk.Embedding,
		CreatedAt:  chunk.CreatedAt,
	}
}
