// Package synthesis derives the weights of student layers from the
// parameters of a frozen teacher network. Instead of storing full
// projection matrices, a synthesized layer stores a small mixing vector
// plus elementwise scale and offset, and recomputes its effective
// weight from a group of adjacent teacher layers on every forward pass.
package synthesis

import (
	"strings"

	"github.com/graft-ml/grafomer/internal/modelerr"
)

// Role identifies a family of teacher parameters, one per teacher
// layer. The textual form is "scope.dotted.path": the scope selects the
// teacher stack ("encoder" or "decoder") and the path is matched as a
// substring against parameter names within that scope.
type Role struct {
	Scope string
	Path  string
}

// ParseRole splits a textual role into scope and path.
func ParseRole(s string) (Role, error) {
	scope, path, ok := strings.Cut(s, ".")
	if !ok || scope == "" || path == "" {
		return Role{}, modelerr.Configf("role %q must have the form \"scope.dotted.path\"", s)
	}
	return Role{Scope: scope, Path: path}, nil
}

// String returns the textual form of the role.
func (r Role) String() string { return r.Scope + "." + r.Path }
