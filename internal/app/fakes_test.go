package app

import (
	"context"
	"sync"

	"github.com/chatcore/chatcore/internal/domain"
)

// fakePush records multicast sends so tests can assert on tokens and text.
type fakePush struct {
	mu    sync.Mutex
	calls []pushCall
	err   error
}

type pushCall struct {
	tokens []string
	title  string
	body   string
}

func (f *fakePush) SendMulticast(_ context.Context, tokens []string, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pushCall{tokens: tokens, title: title, body: body})
	return f.err
}

func inSet(ids []domain.UserID, id domain.UserID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
