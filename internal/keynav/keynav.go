// Package keynav maps key presses onto selection moves and commits.
package keynav

import "strings"

type Action int

const (
	None Action = iota
	Previous
	Next
	Commit
)

func (a Action) String() string {
	switch a {
	case Previous:
		return "previous"
	case Next:
		return "next"
	case Commit:
		return "commit"
	default:
		return "none"
	}
}

// Target receives the resolved action. Implementations read their current
// state when called; the handler holds no copy of it.
type Target interface {
	MovePrevious()
	MoveNext()
	Commit()
}

// Bindings lists the key names for each action. Names are matched exactly
// (bubbletea "up", browser "ArrowUp" and so on).
type Bindings struct {
	Previous []string
	Next     []string
	Commit   []string
}

func DefaultBindings() Bindings {
	return Bindings{
		Previous: []string{"up", "ArrowUp", "ctrl+p"},
		Next:     []string{"down", "ArrowDown", "ctrl+n"},
		Commit:   []string{"enter", "Enter"},
	}
}

type Handler struct {
	keys map[string]Action
}

func New(b Bindings) *Handler {
	h := &Handler{keys: map[string]Action{}}
	bind := func(names []string, a Action) {
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				h.keys[n] = a
			}
		}
	}
	bind(b.Previous, Previous)
	bind(b.Next, Next)
	bind(b.Commit, Commit)
	return h
}

func (h *Handler) Resolve(key string) Action {
	return h.keys[key]
}

// Handle applies the action bound to key. It returns false for unbound keys,
// which callers pass through untouched.
func (h *Handler) Handle(key string, t Target) bool {
	switch h.Resolve(key) {
	case Previous:
		t.MovePrevious()
	case Next:
		t.MoveNext()
	case Commit:
		t.Commit()
	default:
		return false
	}
	return true
}
