// Package webhook decodes the callbacks issued by published dialogs and
// serves the HTTP endpoint receiving them.
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"

	assistant "github.com/goliatone/go-assistant"
)

const (
	keyIntent          = "intent"
	keyFulfillmentText = "fulfillmentText"
	slotPrefix         = "slot"

	CodeInvalidPayload = "INVALID_WEBHOOK_PAYLOAD"
)

var ErrInvalidPayload = errors.New("invalid webhook payload", errors.CategoryBadInput).
	WithTextCode(CodeInvalidPayload)

// Request is the normalized fulfillment record forwarded to the
// fulfillment service.
type Request struct {
	IntentID         string         `json:"intent_id"`
	SlotValues       map[string]any `json:"slot_values"`
	ResponseTemplate string         `json:"response_template"`
}

// Decode maps a flat callback payload. Keys starting with "slot" become slot
// values with every underscore turned back into a hyphen. Unknown keys are
// ignored.
func Decode(payload map[string]any) Request {
	req := Request{SlotValues: make(map[string]any)}
	for key, value := range payload {
		switch {
		case key == keyIntent:
			if value != nil {
				req.IntentID = fmt.Sprint(value)
			}
		case key == keyFulfillmentText:
			if s, ok := value.(string); ok {
				req.ResponseTemplate = s
			} else if value != nil {
				req.ResponseTemplate = fmt.Sprint(value)
			}
		case strings.HasPrefix(key, slotPrefix):
			req.SlotValues[strings.ReplaceAll(key, "_", "-")] = value
		}
	}
	return req
}

// DecodeJSON parses body as a JSON object and decodes it. Numbers keep
// their literal form.
func DecodeJSON(body []byte) (Request, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return Request{}, assistant.CloneError(ErrInvalidPayload, "", err, nil)
	}
	if payload == nil {
		return Request{}, assistant.CloneError(ErrInvalidPayload, "webhook payload must be a JSON object", nil, nil)
	}
	return Decode(payload), nil
}
