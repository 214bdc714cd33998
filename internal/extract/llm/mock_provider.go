package llm

import (
	"context"
	"fmt"
)

// MockProvider is a canned-response Provider for tests and local
// development, grounded on the teacher's llm.MockProvider.
type MockProvider struct {
	Available bool
	Response  string
	Err       error
}

// NewMockProvider returns an available MockProvider returning response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Available: true, Response: response}
}

func (m *MockProvider) IsAvailable() bool { return m.Available }

func (m *MockProvider) Complete(_ context.Context, _ string, _ CompletionOptions) (string, error) {
	if !m.Available {
		return "", fmt.Errorf("mock provider unavailable")
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
