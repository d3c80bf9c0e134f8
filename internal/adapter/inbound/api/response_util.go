package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
)

const maxRequestBodyBytes = 1 << 20

// pooledEncoder pairs a JSON encoder with the buffer it writes to.
type pooledEncoder struct {
	buf     *bytes.Buffer
	encoder *json.Encoder
}

var encoderPool = sync.Pool{ //nolint:gochecknoglobals // shared response encoders
	New: func() any {
		buf := bytes.NewBuffer(make([]byte, 0, 512))
		return &pooledEncoder{buf: buf, encoder: json.NewEncoder(buf)}
	},
}

// WriteJSON encodes data and writes it with statusCode, defaulting to 200.
// Nothing reaches w when encoding fails, so the caller can still send an error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	pe, _ := encoderPool.Get().(*pooledEncoder)
	defer func() {
		pe.buf.Reset()
		encoderPool.Put(pe)
	}()

	if err := pe.encoder.Encode(data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, err := w.Write(pe.buf.Bytes())
	return err
}

// decodeJSON reads a request body of at most 1 MiB into v, rejecting unknown
// fields. Decode failures are reported as a ValidationError on "body".
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return NewValidationError("body", "Request body is required")
	}

	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return NewValidationError("body", "Invalid JSON format: "+err.Error())
	}
	return nil
}
