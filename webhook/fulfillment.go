package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/model"
)

const CodeFulfillmentFailed = "FULFILLMENT_FAILED"

var ErrFulfillmentFailed = errors.New("fulfillment failed", errors.CategoryExternal).
	WithTextCode(CodeFulfillmentFailed)

// Fulfiller resolves a decoded callback into the JSON answer returned to the
// dialog.
type Fulfiller interface {
	Fulfill(ctx context.Context, project *model.Project, req Request) (json.RawMessage, error)
}

// FulfillerFunc adapts a function to Fulfiller.
type FulfillerFunc func(ctx context.Context, project *model.Project, req Request) (json.RawMessage, error)

func (f FulfillerFunc) Fulfill(ctx context.Context, project *model.Project, req Request) (json.RawMessage, error) {
	return f(ctx, project, req)
}

// EchoFulfiller answers with the decoded request itself.
var EchoFulfiller = FulfillerFunc(func(_ context.Context, _ *model.Project, req Request) (json.RawMessage, error) {
	return json.Marshal(req)
})

// HTTPFulfiller posts the decoded request to a fulfillment service and
// returns its JSON body unchanged.
type HTTPFulfiller struct {
	url    string
	client *http.Client
	logger assistant.Logger
}

type FulfillerOption func(*HTTPFulfiller)

func WithHTTPClient(c *http.Client) FulfillerOption {
	return func(f *HTTPFulfiller) {
		f.client = c
	}
}

func WithFulfillerLogger(l assistant.Logger) FulfillerOption {
	return func(f *HTTPFulfiller) {
		f.logger = l
	}
}

func NewHTTPFulfiller(url string, opts ...FulfillerOption) *HTTPFulfiller {
	f := &HTTPFulfiller{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	f.logger = assistant.NormalizeLogger(f.logger)
	return f
}

func (f *HTTPFulfiller) Fulfill(ctx context.Context, project *model.Project, req Request) (json.RawMessage, error) {
	meta := map[string]any{"url": f.url, "intent_id": req.IntentID}
	if project != nil {
		meta["project_id"] = project.ID
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode fulfillment request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, assistant.CloneError(ErrFulfillmentFailed, "build fulfillment request", err, meta)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	res, err := f.client.Do(httpReq)
	if err != nil {
		return nil, assistant.CloneError(ErrFulfillmentFailed, "", err, meta)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, assistant.CloneError(ErrFulfillmentFailed, "read fulfillment response", err, meta)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		meta["status"] = res.StatusCode
		return nil, assistant.CloneError(ErrFulfillmentFailed, fmt.Sprintf("fulfillment service returned %d", res.StatusCode), nil, meta)
	}
	if !json.Valid(payload) {
		return nil, assistant.CloneError(ErrFulfillmentFailed, "fulfillment service returned invalid JSON", nil, meta)
	}
	f.logger.Debug("fulfilled intent %s", req.IntentID)
	return json.RawMessage(payload), nil
}
