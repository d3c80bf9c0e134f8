package entity

// PayloadContentKey holds the full summary text inside a point payload. It is
// excluded when metadata is rebuilt from a search result.
const PayloadContentKey = "content"

// Point is the unit persisted to the vector index.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Metadata returns the payload without the reserved content key.
func (p Point) Metadata() map[string]any {
	return MetadataFromPayload(p.Payload)
}

// MetadataFromPayload copies a payload, dropping the reserved content key.
func MetadataFromPayload(payload map[string]any) map[string]any {
	metadata := make(map[string]any, len(payload))
	for key, value := range payload {
		if key == PayloadContentKey {
			continue
		}
		metadata[key] = value
	}
	return metadata
}

// PreparedPoint is a record that has been summarized but not yet embedded.
type PreparedPoint struct {
	ID       string
	Summary  string
	Metadata map[string]any
}
