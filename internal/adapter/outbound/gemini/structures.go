package gemini

// Wire shapes of the embedContent REST endpoint. Only the fields the client
// reads or sends are declared.

type embedContentRequest struct {
	Model                string       `json:"model"`
	Content              contentParts `json:"content"`
	TaskType             string       `json:"taskType,omitempty"`
	OutputDimensionality int          `json:"outputDimensionality,omitempty"`
}

type contentParts struct {
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

func newEmbedContentRequest(model, text, taskType string, dimensions int) embedContentRequest {
	return embedContentRequest{
		Model:                "models/" + model,
		Content:              contentParts{Parts: []textPart{{Text: text}}},
		TaskType:             taskType,
		OutputDimensionality: dimensions,
	}
}

type embedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// apiErrorBody is the error envelope Google APIs return on non-200 responses.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
