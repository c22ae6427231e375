package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

// requestBody reads a mutating request's payload once and answers key
// lookups regardless of whether the client sent JSON or form data.
type requestBody struct {
	jsonData map[string]any
	form     url.Values
	isJSON   bool
}

func parseRequestBody(r *http.Request) (*requestBody, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.Contains(contentType, "application/json") {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return &requestBody{jsonData: data, isJSON: true}, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	return &requestBody{form: r.PostForm, isJSON: false}, nil
}

func (b *requestBody) Get(key string) string {
	if b.isJSON {
		if v, ok := b.jsonData[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	return b.form.Get(key)
}

// sanitizeInput drops control characters and caps the length of
// client-supplied text before it reaches the ledger.
func sanitizeInput(s string, maxLen int) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) && r != '\t' {
			continue
		}
		sb.WriteRune(r)
	}
	out := sb.String()
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}
