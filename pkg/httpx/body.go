package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// peekBodyLimit caps how much of a request body middleware will buffer.
const peekBodyLimit = 1 << 20

// peekBody reads the request body and puts it back so downstream handlers
// can decode it again.
func peekBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, peekBodyLimit))
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func jsonUnmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return io.EOF
	}
	return json.Unmarshal(data, v)
}
