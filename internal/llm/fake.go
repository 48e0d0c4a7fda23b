package llm

import (
	"context"
	"encoding/json"
)

// FakeClient returns canned payloads and fragment sequences for
// offline use and tests.
type FakeClient struct {
	// JSON is returned by GenerateJSON when JSONErr is nil.
	JSON json.RawMessage
	// JSONErr, when set, fails GenerateJSON.
	JSONErr error

	// Fragments are delivered in order by GenerateStream.
	Fragments []string
	// StreamErr, when set, terminates the stream after Fragments
	// (simulating an abnormal end; set Fragments to a prefix to model
	// mid-stream failure).
	StreamErr error

	Calls int
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(_ context.Context, _ Request) (json.RawMessage, error) {
	f.Calls++
	if f.JSONErr != nil {
		return nil, f.JSONErr
	}
	if f.JSON == nil {
		return json.RawMessage(`{}`), nil
	}
	return f.JSON, nil
}

func (f *FakeClient) GenerateStream(_ context.Context, _ Request, onChunk func(string) error) error {
	f.Calls++
	for _, fr := range f.Fragments {
		if err := onChunk(fr); err != nil {
			return err
		}
	}
	return f.StreamErr
}
