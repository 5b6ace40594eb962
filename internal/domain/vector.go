package domain

// VectorRecord is the vector index's unit of storage: a chunk, its
// embedding, and the metadata needed to render a citation without a second
// lookup.
type VectorRecord struct {
	ChunkID       string    `json:"chunk_id"`
	DocumentID    string    `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	SourcePath    string    `json:"source_path"`
	Text          string    `json:"text"`
	SequenceIndex int       `json:"sequence_index"`
	Embedding     []float32 `json:"-"`
}

// Match is a vector record paired with its similarity score, as returned
// by a nearest-neighbour query.
type Match struct {
	Record VectorRecord `json:"record"`
	Score  float64      `json:"score"`
}

// IndexStats reports the size of the vector index.
type IndexStats struct {
	DocumentCount int `json:"document_count"`
	ChunkCount    int `json:"chunk_count"`
}
