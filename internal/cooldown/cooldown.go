// Package cooldown limits how often a command may run per scope.
package cooldown

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const maxScopes = 10000

type Tracker struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	uses *expirable.LRU[string, time.Time]
}

// New tracks up to maxScopes scopes. Entries drop out once their window has
// passed, so idle guilds do not accumulate.
func New(window time.Duration) *Tracker {
	if window <= 0 {
		window = time.Minute
	}
	return &Tracker{
		window: window,
		now:    time.Now,
		uses:   expirable.NewLRU[string, time.Time](maxScopes, nil, window),
	}
}

// Allow records a use for key and reports whether it was permitted. When the
// key is still cooling down, the remaining wait is returned.
func (t *Tracker) Allow(key string) (bool, time.Duration) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		key = "global"
	}
	now := t.now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.uses.Get(key); ok {
		if elapsed := now.Sub(last); elapsed < t.window {
			return false, t.window - elapsed
		}
	}
	t.uses.Add(key, now)
	return true, 0
}
