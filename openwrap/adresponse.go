package openwrap

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
)

const targetingKey = "targeting"

// AdResponse holds a parsed OpenWrap response body. The only structurally
// significant field is the optional "targeting" object; its absence is a
// valid response, not an error.
type AdResponse struct {
	body []byte
}

// ParseAdResponse validates body as a JSON document and wraps it. A body
// that is not valid JSON is a parse failure; the caller maps it to the
// transport parse error code.
func ParseAdResponse(body []byte) (*AdResponse, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("response body is not valid JSON")
	}
	return &AdResponse{body: body}, nil
}

// Body returns the raw response document.
func (r *AdResponse) Body() []byte { return r.body }

// Targeting returns the raw targeting object, or nil when the response does
// not carry one.
func (r *AdResponse) Targeting() json.RawMessage {
	value, dataType, _, err := jsonparser.Get(r.body, targetingKey)
	if err != nil || dataType != jsonparser.Object {
		return nil
	}
	return value
}

// TargetingValues flattens the targeting object into a string map. Scalar
// values are rendered with their JSON text; nested structures are kept as
// raw JSON. Returns nil when no targeting object is present.
func (r *AdResponse) TargetingValues() map[string]string {
	obj := r.Targeting()
	if obj == nil {
		return nil
	}

	values := make(map[string]string)
	_ = jsonparser.ObjectEach(obj, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		values[string(key)] = string(value)
		return nil
	})
	return values
}
