package provider

import "sync"

// Usage tracks token consumption across calls to one provider.
type Usage struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewUsage creates an empty tracker.
func NewUsage() *Usage {
	return &Usage{}
}

// Add records one call's token counts.
func (u *Usage) Add(input, output int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.inputTok += input
	u.outputTok += output
	u.calls++
}

// Total returns the summed input and output tokens.
func (u *Usage) Total() (input, output int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inputTok, u.outputTok
}

// Calls returns the number of recorded calls.
func (u *Usage) Calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}
