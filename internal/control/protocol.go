// Package control exposes a running bridge to external client bindings over
// a local unix socket. Each line on the socket is one JSON request or
// response; responses carry the id of the request they answer.
package control

import (
	"encoding/json"

	"github.com/user/webdriver-bridge/internal/drivererr"
)

// localStatus is reported for failures that never reached the extension.
const localStatus = 13

// Request asks the bridge to run one command. Command is either the kind
// name ("FindElement") or the wire name ("findElement"); Params follow the
// catalog's parameter order.
type Request struct {
	ID      string            `json:"id"`
	Command string            `json:"command"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

// Response is the outcome of a Request.
type Response struct {
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Value  json.RawMessage `json:"value,omitempty"`
	Error  string          `json:"error,omitempty"`
	Kind   string          `json:"kind,omitempty"`
}

// Err rebuilds the typed error carried by the response, nil on success.
func (r *Response) Err() error {
	if r.Error == "" && r.Kind == "" && r.Status == 0 {
		return nil
	}
	kind := drivererr.Kind(r.Kind)
	if kind == "" {
		kind = drivererr.GenericDriverError
	}
	return &drivererr.E{Kind: kind, Status: r.Status, Message: r.Error}
}

// Decode unmarshals the value into out.
func (r *Response) Decode(out any) error {
	if len(r.Value) == 0 {
		return json.Unmarshal([]byte("null"), out)
	}
	return json.Unmarshal(r.Value, out)
}
