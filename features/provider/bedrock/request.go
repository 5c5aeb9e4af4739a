// Package bedrock instruments AWS Bedrock Converse and ConverseStream calls
// made with github.com/aws/aws-sdk-go-v2/service/bedrockruntime.
package bedrock

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

var errNoDocument = errors.New("bedrock: empty document")

// Request is the part of a Converse or ConverseStream input the
// instrumentation reads. Both inputs carry the same fields.
type Request struct {
	ModelID          string
	Messages         []brtypes.Message
	System           []brtypes.SystemContentBlock
	InferenceConfig  *brtypes.InferenceConfiguration
	ToolConfig       *brtypes.ToolConfiguration
	AdditionalFields document.Interface

	once       sync.Once
	additional map[string]any
}

// FromConverse returns the request described by in.
func FromConverse(in *bedrockruntime.ConverseInput) *Request {
	if in == nil {
		return &Request{}
	}
	return &Request{
		ModelID:          deref(in.ModelId),
		Messages:         in.Messages,
		System:           in.System,
		InferenceConfig:  in.InferenceConfig,
		ToolConfig:       in.ToolConfig,
		AdditionalFields: in.AdditionalModelRequestFields,
	}
}

// FromConverseStream returns the request described by in.
func FromConverseStream(in *bedrockruntime.ConverseStreamInput) *Request {
	if in == nil {
		return &Request{}
	}
	return &Request{
		ModelID:          deref(in.ModelId),
		Messages:         in.Messages,
		System:           in.System,
		InferenceConfig:  in.InferenceConfig,
		ToolConfig:       in.ToolConfig,
		AdditionalFields: in.AdditionalModelRequestFields,
	}
}

// additionalField returns the named model specific request field, decoded
// once from the additional request fields document.
func (r *Request) additionalField(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	r.once.Do(func() {
		var m map[string]any
		if err := decodeDocument(r.AdditionalFields, &m); err == nil {
			r.additional = m
		}
	})
	v, ok := r.additional[name]
	return v, ok
}

// documentJSON returns the JSON encoding of doc, or nil.
func documentJSON(doc document.Interface) json.RawMessage {
	if doc == nil {
		return nil
	}
	data, err := doc.MarshalSmithyDocument()
	if err != nil || len(data) == 0 {
		return nil
	}
	return data
}

func decodeDocument(doc document.Interface, v any) error {
	data := documentJSON(doc)
	if data == nil {
		return errNoDocument
	}
	return json.Unmarshal(data, v)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
