package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/webdriver-bridge/internal/drivererr"
)

// Response is the extension's reply to a command.
type Response struct {
	StatusCode int             `json:"statusCode"`
	Value      json.RawMessage `json:"value"`
}

// Message returns value.message when value is an object carrying a string
// message, otherwise "".
func (r *Response) Message() string {
	var v struct {
		Message string `json:"message"`
	}
	if len(r.Value) == 0 || r.Value[0] != '{' {
		return ""
	}
	if err := json.Unmarshal(r.Value, &v); err != nil {
		return ""
	}
	return v.Message
}

// Decode unmarshals the value payload into out.
func (r *Response) Decode(out any) error {
	if len(r.Value) == 0 {
		return json.Unmarshal([]byte("null"), out)
	}
	return json.Unmarshal(r.Value, out)
}

// Err maps the status code to a typed error; nil on success.
func (r *Response) Err() error {
	return drivererr.FromStatus(r.StatusCode, r.Message())
}

// ExtractBody returns the JSON body of a result payload: the text after the
// first blank line and before the trailer. It returns "" when the payload
// does not split into exactly headers and body.
func ExtractBody(raw string) string {
	parts := strings.SplitN(raw, headerEnd, 2)
	if len(parts) != 2 {
		return ""
	}
	body := parts[1]
	if i := strings.Index(body, Trailer); i >= 0 {
		body = body[:i]
	}
	return body
}

// ParseResponse extracts and decodes the result carried by raw.
func ParseResponse(raw string) (*Response, error) {
	body := ExtractBody(raw)
	if strings.TrimSpace(body) == "" {
		return nil, drivererr.New(drivererr.MalformedResponse, "no usable response body")
	}

	var envelope struct {
		StatusCode *int            `json:"statusCode"`
		Value      json.RawMessage `json:"value"`
	}
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&envelope); err != nil {
		return nil, drivererr.Wrap(drivererr.MalformedResponse, "decode response body", err)
	}
	if envelope.StatusCode == nil {
		return nil, drivererr.New(drivererr.MalformedResponse, "response body has no statusCode")
	}

	value := bytes.TrimSpace(envelope.Value)
	if len(value) == 0 {
		value = nil
	}
	return &Response{StatusCode: *envelope.StatusCode, Value: value}, nil
}

// ParseResult parses raw and returns the response or its mapped error.
func ParseResult(raw string) (*Response, error) {
	resp, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return resp, err
	}
	return resp, nil
}

// EncodeResult builds a result payload the way the extension posts it.
// Used by tests that play the extension.
func EncodeResult(status int, value any) (string, error) {
	body, err := json.Marshal(struct {
		StatusCode int `json:"statusCode"`
		Value      any `json:"value"`
	}{status, value})
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return fmt.Sprintf("POST / HTTP/1.1\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s%s",
		len(body)+len(Trailer), body, Trailer), nil
}
