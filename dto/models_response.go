package dto

import (
	"encoding/json"
	"net/http"
)

type Response struct {
	StatusCode int
	Headers    http.Header
	// Raw body bytes, kept for classification and decoding.
	Body []byte
}

func (r Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v. Empty bodies decode to the zero value.
func (r Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}
