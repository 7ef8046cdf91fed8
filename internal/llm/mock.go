package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one scripted reply for the MockProvider. A set Err is
// returned instead of a Response.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider replays scripted responses in order and records every
// request it sees. An exhausted script answers ErrProviderUnavailable,
// which doubles as the provider-down fixture in tests.
type MockProvider struct {
	mu     sync.Mutex
	script []MockResponse
	next   int

	Calls []Request
}

// NewMockProvider creates a MockProvider with the given script.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{script: responses}
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if m.next >= len(m.script) {
		return nil, &ErrProviderUnavailable{}
	}
	scripted := m.script[m.next]
	m.next++

	if scripted.Err != nil {
		return nil, scripted.Err
	}
	return &Response{
		Content:    scripted.Content,
		Usage:      scripted.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

// AddResponse appends one scripted response.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

// CallCount reports how many Generate calls were made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
