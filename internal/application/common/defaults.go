package common

// Defaults shared by the pipeline, chat and API layers.
const (
	DefaultBatchSize        = 20
	DefaultWorkerCount      = 4
	DefaultProgressEvery    = 5
	DefaultUpsertChunkSize  = 100
	DefaultEmbeddingDims    = 768
	DefaultCollection       = "rvtools_embeddings"
	DefaultSearchTopK       = 5
	MaxSearchTopK           = 50
	InterruptedByShutdown   = "Server shutdown"
	EmbeddingTaskIDTemplate = "embed-%d-%s"
)

// ClampTopK applies the default and maximum result counts for a search.
func ClampTopK(topK int) int {
	if topK <= 0 {
		return DefaultSearchTopK
	}
	if topK > MaxSearchTopK {
		return MaxSearchTopK
	}
	return topK
}
