package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
)

// MemoryStoryStore is an in-memory StoryStorePort.
type MemoryStoryStore struct {
	mu      sync.Mutex
	stories map[model.Snowflake]string
	Err     error
}

// NewMemoryStoryStore creates an empty store.
func NewMemoryStoryStore() *MemoryStoryStore {
	return &MemoryStoryStore{stories: make(map[model.Snowflake]string)}
}

var _ outbound.StoryStorePort = (*MemoryStoryStore)(nil)

func (s *MemoryStoryStore) Get(ctx context.Context, memberID model.Snowflake) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", false, s.Err
	}
	story, ok := s.stories[memberID]
	return story, ok, nil
}

func (s *MemoryStoryStore) Save(ctx context.Context, memberID model.Snowflake, story string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.stories[memberID] = story
	return nil
}

func (s *MemoryStoryStore) Delete(ctx context.Context, memberID model.Snowflake) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.stories[memberID]
	delete(s.stories, memberID)
	return ok, nil
}

// Len returns the number of stored biographies.
func (s *MemoryStoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stories)
}

// MemoryInviteHistory is an in-memory InviteHistoryPort.
type MemoryInviteHistory struct {
	mu      sync.Mutex
	records map[model.Snowflake]*model.InviteHistoryRecord
}

// NewMemoryInviteHistory creates an empty history.
func NewMemoryInviteHistory() *MemoryInviteHistory {
	return &MemoryInviteHistory{records: make(map[model.Snowflake]*model.InviteHistoryRecord)}
}

var _ outbound.InviteHistoryPort = (*MemoryInviteHistory)(nil)

func (h *MemoryInviteHistory) Get(ctx context.Context, memberID model.Snowflake) (*model.InviteHistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.records[memberID]
	if !ok {
		return nil, nil
	}
	c := *rec
	return &c, nil
}

func (h *MemoryInviteHistory) SaveIfAbsent(ctx context.Context, memberID model.Snowflake, record *model.InviteHistoryRecord) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.records[memberID]; ok {
		return false, nil
	}
	c := *record
	h.records[memberID] = &c
	return true, nil
}

// FakeTextProvider records prompts and returns a canned completion.
type FakeTextProvider struct {
	mu       sync.Mutex
	Response string
	Err      error
	prompts  []string
	options  []outbound.CompletionOptions
}

var _ outbound.TextProviderPort = (*FakeTextProvider)(nil)

func (f *FakeTextProvider) Complete(ctx context.Context, prompt string, opts outbound.CompletionOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.options = append(f.options, opts)
	if f.Err != nil {
		return "", f.Err
	}
	return f.Response, nil
}

// Prompts returns every prompt received so far.
func (f *FakeTextProvider) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Options returns the options of every call so far.
func (f *FakeTextProvider) Options() []outbound.CompletionOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]outbound.CompletionOptions(nil), f.options...)
}

// PromptContains reports whether the latest prompt contains every fragment.
func (f *FakeTextProvider) PromptContains(fragments ...string) bool {
	prompts := f.Prompts()
	if len(prompts) == 0 {
		return false
	}
	last := prompts[len(prompts)-1]
	for _, frag := range fragments {
		if !strings.Contains(last, frag) {
			return false
		}
	}
	return true
}
