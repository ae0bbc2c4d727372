package services

import (
	"context"
	"sync"
	"time"
)

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	delay   time.Duration
	prompts []string
	images  [][]byte
	mimes   []string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.respond(ctx)
}

func (f *fakeGenerator) GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, image)
	f.mimes = append(f.mimes, mimeType)
	f.mu.Unlock()
	return f.respond(ctx)
}

func (f *fakeGenerator) respond(ctx context.Context) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]map[string]any
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]map[string]any{}}
}

func (c *memoryCache) Get(_ context.Context, image []byte) (map[string]any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[string(image)]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, image []byte, analysis map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[string(image)] = analysis
	return nil
}
