package worker

import (
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/stratigraphie"
)

// Message types understood by Handler.
const (
	TypeInit     = "init"
	TypeDiff     = "diff"
	TypeValidate = "validate"
	TypeStats    = "stats"
	TypeReset    = "reset"
	TypeSnapshot = "snapshot"
)

// Request is one message sent to the worker. ID is a caller-assigned
// correlation id (JSON number or string) echoed verbatim in the response.
type Request struct {
	ID   json.RawMessage `json:"id"`
	Type string          `json:"type"`

	Nodes     []string                 `json:"nodes,omitempty"`
	Relations []stratigraphie.Relation `json:"relations,omitempty"`
	Diff      *stratigraphie.Diff      `json:"diff,omitempty"`
	Relation  *stratigraphie.Relation  `json:"relation,omitempty"`
}

// Response answers a Request. Exactly one of Result or Error is meaningful,
// depending on OK.
type Response struct {
	ID     json.RawMessage
	OK     bool
	Result any
	Error  string
}

type okEnvelope struct {
	ID     json.RawMessage `json:"id"`
	OK     bool            `json:"ok"`
	Result any             `json:"result"`
}

type errEnvelope struct {
	ID    json.RawMessage `json:"id"`
	OK    bool            `json:"ok"`
	Error string          `json:"error"`
}

// MarshalJSON encodes {id, ok:true, result} or {id, ok:false, error}.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.OK {
		return json.Marshal(okEnvelope{ID: r.ID, OK: true, Result: r.Result})
	}
	return json.Marshal(errEnvelope{ID: r.ID, Error: r.Error})
}

// UnmarshalJSON decodes either envelope. Result is left as json.RawMessage.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     json.RawMessage `json:"id"`
		OK     bool            `json:"ok"`
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ID, r.OK, r.Error = raw.ID, raw.OK, raw.Error
	r.Result = nil
	if raw.OK {
		r.Result = raw.Result
	}
	return nil
}

func success(id json.RawMessage, result any) Response {
	return Response{ID: id, OK: true, Result: result}
}

func failure(id json.RawMessage, err error) Response {
	return Response{ID: id, Error: err.Error()}
}

// DecodeRequest parses a JSON request envelope.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("worker: decode request: %w", err)
	}
	if req.Type == "" {
		return req, fmt.Errorf("worker: decode request: missing type")
	}
	return req, nil
}
