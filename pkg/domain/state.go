package domain

import "strings"

// GameState is the set of host variables conditions are evaluated against.
// Nested maps are addressed with dotted paths ("inventory.keys").
type GameState map[string]any

// Resolve walks a dotted path through nested maps.
func (s GameState) Resolve(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	v, ok := s[path[0]]
	if !ok || len(path) == 1 {
		return v, ok
	}
	switch sub := v.(type) {
	case GameState:
		return sub.Resolve(path[1:])
	case map[string]any:
		return GameState(sub).Resolve(path[1:])
	default:
		return nil, false
	}
}

// Get resolves a dotted key.
func (s GameState) Get(key string) (any, bool) {
	return s.Resolve(strings.Split(key, "."))
}
