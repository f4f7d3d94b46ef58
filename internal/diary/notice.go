package diary

import (
	"sync"
	"time"

	"github.com/christophergentle/mooddiary/internal/recommend"
)

// DefaultNoticeTimeout is how long a recommendation stays visible after a save
const DefaultNoticeTimeout = 5 * time.Second

// Notice is the recommendation shown after a save. It belongs to the caller, is never
// persisted, and goes away after ExpiresAt or an explicit Dismiss.
type Notice struct {
	Message   string         `json:"message"`
	Rule      recommend.Rule `json:"-"`
	RuleName  string         `json:"rule"`
	ShownAt   time.Time      `json:"shownAt"`
	ExpiresAt time.Time      `json:"expiresAt"`

	mu        sync.Mutex
	dismissed bool
}

func newNotice(message string, rule recommend.Rule, now time.Time, ttl time.Duration) *Notice {
	return &Notice{
		Message:   message,
		Rule:      rule,
		RuleName:  rule.String(),
		ShownAt:   now,
		ExpiresAt: now.Add(ttl),
	}
}

// Dismiss clears the notice ahead of its timeout
func (n *Notice) Dismiss() {
	n.mu.Lock()
	n.dismissed = true
	n.mu.Unlock()
}

// Active reports whether the notice should still be displayed at t
func (n *Notice) Active(t time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.dismissed && t.Before(n.ExpiresAt)
}

// Text returns the message while the notice is active and "" afterwards
func (n *Notice) Text(t time.Time) string {
	if !n.Active(t) {
		return ""
	}
	return n.Message
}
