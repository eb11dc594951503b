package geoapi

import (
	"context"
	"sync"

	"github.com/evyataryagoni/iptracker/internal/models"
)

// MockClient is a test double for the Client interface.
// It allows tests to control responses and verify interactions.
type MockClient struct {
	mu sync.Mutex

	// Results maps an address to the record returned for it
	Results map[string]*models.LookupResult

	// LookupError, when set, is returned for every call
	LookupError error

	// Block, when non-nil, makes Lookup wait for a value (or ctx) before answering
	Block chan struct{}

	// LookupCalls records every address Lookup was called with
	LookupCalls []string
}

// NewMockClient creates a mock client with sample test data
func NewMockClient() *MockClient {
	return &MockClient{
		Results: map[string]*models.LookupResult{
			"8.8.8.8": {
				IP: "8.8.8.8",
				Location: models.Location{
					City: "Mountain View", Region: "California", Country: "US",
					Latitude: 37.40599, Longitude: -122.078514, Timezone: "-07:00",
				},
				ISP:       "Google LLC",
				Available: true,
			},
			"1.2.3.4": {
				IP: "1.2.3.4",
				Location: models.Location{
					City: "Testville", Region: "TS", Country: "TS",
					Latitude: 1, Longitude: 2, Timezone: "+01:00",
				},
				ISP:       "TestISP",
				Available: true,
			},
		},
		LookupCalls: []string{},
	}
}

// Lookup implements the Client interface
func (m *MockClient) Lookup(ctx context.Context, address string) (*models.LookupResult, error) {
	m.mu.Lock()
	m.LookupCalls = append(m.LookupCalls, address)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LookupError != nil {
		return nil, m.LookupError
	}

	result, ok := m.Results[address]
	if !ok {
		return nil, &StatusError{Code: 422, Message: "Input correct ipAddress or domain."}
	}

	// hand out a copy so callers can't mutate the fixture
	copied := *result
	return &copied, nil
}

// Calls returns a snapshot of the recorded addresses
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.LookupCalls...)
}
