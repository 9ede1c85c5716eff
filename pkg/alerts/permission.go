package alerts

import (
	"context"
	"strings"
	"sync"
)

// Permission mirrors the platform notification permission
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission maps a string to a Permission, falling back to default
func ParsePermission(s string) Permission {
	switch Permission(strings.ToLower(strings.TrimSpace(s))) {
	case PermissionGranted:
		return PermissionGranted
	case PermissionDenied:
		return PermissionDenied
	default:
		return PermissionDefault
	}
}

// PermissionProvider reports and requests the platform permission. The
// manager asks it every time and never remembers the answer itself.
type PermissionProvider interface {
	State() Permission
	Prompt(ctx context.Context) (Permission, error)
}

// StaticPermission is a provider whose prompt always resolves to a fixed
// answer. Once prompted, its state becomes that answer.
type StaticPermission struct {
	mu     sync.Mutex
	state  Permission
	answer Permission
}

// NewStaticPermission creates a provider in state that answers prompts with answer
func NewStaticPermission(state, answer Permission) *StaticPermission {
	return &StaticPermission{state: state, answer: answer}
}

func (p *StaticPermission) State() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *StaticPermission) Prompt(_ context.Context) (Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PermissionDefault {
		p.state = p.answer
	}
	return p.state, nil
}

// Revoke simulates the user changing the setting outside the app
func (p *StaticPermission) Revoke() {
	p.mu.Lock()
	p.state = PermissionDenied
	p.mu.Unlock()
}
