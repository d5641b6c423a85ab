package appsearch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrNoResponse is returned by Fake when no canned response was set.
var ErrNoResponse = errors.New("response not set in fake transport")

// Click is a clickthrough recorded by Fake.
type Click struct {
	EngineName string
	Query      string
	DocumentID string
	RequestID  string
	Tags       []string
}

// Fake serves one canned response body for every request. Used by tests and
// the CLI's offline mode.
type Fake struct {
	mu       sync.Mutex
	response []byte
	clicks   []Click
	clickErr error
}

// NewFake creates a fake with no response set.
func NewFake() *Fake { return &Fake{} }

// SetResponse sets the body returned by every call.
func (f *Fake) SetResponse(body string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.response = []byte(body)
	return f
}

// SetResponseFromFile loads the body from filename.
func (f *Fake) SetResponseFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read fake response: %w", err)
	}
	f.SetResponse(string(data))
	return nil
}

// FailClicks makes LogClickthrough return err.
func (f *Fake) FailClicks(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clickErr = err
}

// Clicks returns the recorded clickthroughs.
func (f *Fake) Clicks() []Click {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Click(nil), f.clicks...)
}

func (f *Fake) body() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.response) == 0 {
		return nil, ErrNoResponse
	}
	return append([]byte(nil), f.response...), nil
}

// Search returns the canned response.
func (f *Fake) Search(context.Context, string, map[string]any) ([]byte, error) { return f.body() }

// MultiSearch returns the canned response.
func (f *Fake) MultiSearch(context.Context, string, []map[string]any) ([]byte, error) {
	return f.body()
}

// QuerySuggestion returns the canned response.
func (f *Fake) QuerySuggestion(context.Context, string, map[string]any) ([]byte, error) {
	return f.body()
}

// LogClickthrough records the click.
func (f *Fake) LogClickthrough(
	_ context.Context, engineName, query, documentID, requestID string, tags []string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicks = append(f.clicks, Click{
		EngineName: engineName,
		Query:      query,
		DocumentID: documentID,
		RequestID:  requestID,
		Tags:       tags,
	})
	return nil
}
