package synthesis

import (
	"strings"

	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// NamedParam is a teacher parameter tagged with its hierarchical name,
// such as "encoder.layer.3.attention.self.query.weight".
type NamedParam[B tensor.Backend] struct {
	Name   string
	Tensor *tensor.Tensor[float32, B]
}

// TeacherNetwork exposes the frozen parameters that synthesis draws
// from. Implementations must return parameters in layer traversal
// order: all of layer 0 before all of layer 1, and so on.
type TeacherNetwork[B tensor.Backend] interface {
	// NamedParameters returns the parameters of one stack. Scope is
	// "encoder" or "decoder".
	NamedParameters(scope string) []NamedParam[B]
}

// TeacherContext binds a teacher network for parameter selection. Every
// synthesized layer holds the context it was built with; there is no
// process-wide registry, so two models may draw from different teachers
// in the same process.
type TeacherContext[B tensor.Backend] struct {
	teacher TeacherNetwork[B]
}

// NewTeacherContext wraps a teacher network.
func NewTeacherContext[B tensor.Backend](teacher TeacherNetwork[B]) *TeacherContext[B] {
	return &TeacherContext[B]{teacher: teacher}
}

// Select collects the teacher parameters matching role, partitions them
// into contiguous equal-sized groups, and returns the group for one
// student layer stacked on a new leading dimension.
//
// With T matching teacher parameters and S student layers, each group
// holds T/S (integer division) adjacent parameters; student layer i
// receives parameters [i*chunk, (i+1)*chunk). When S does not divide T
// the trailing remainder parameters are left unused.
func (tc *TeacherContext[B]) Select(role string, studentLayer, numStudentLayers int) (*tensor.Tensor[float32, B], error) {
	if tc.teacher == nil {
		return nil, modelerr.Configf("role %q: no teacher network registered", role)
	}
	if numStudentLayers <= 0 {
		return nil, modelerr.Configf("role %q: student layer count must be positive, got %d", role, numStudentLayers)
	}
	if studentLayer < 0 || studentLayer >= numStudentLayers {
		return nil, modelerr.Configf("role %q: student layer %d out of range [0, %d)", role, studentLayer, numStudentLayers)
	}

	r, err := ParseRole(role)
	if err != nil {
		return nil, err
	}

	var matched []*tensor.Tensor[float32, B]
	for _, p := range tc.teacher.NamedParameters(r.Scope) {
		if matchesRole(p.Name, r.Path) {
			matched = append(matched, p.Tensor)
		}
	}
	if len(matched) == 0 {
		return nil, modelerr.Configf("role %q matches no teacher parameters", role)
	}
	for i := 1; i < len(matched); i++ {
		if !matched[i].Shape().Equal(matched[0].Shape()) {
			return nil, modelerr.Configf("role %q matches parameters of differing shapes %v and %v",
				role, matched[0].Shape(), matched[i].Shape())
		}
	}

	chunk := len(matched) / numStudentLayers
	if chunk == 0 {
		return nil, modelerr.Configf("role %q: teacher has %d matching parameters for %d student layers",
			role, len(matched), numStudentLayers)
	}

	group := matched[studentLayer*chunk : (studentLayer+1)*chunk]
	return tensor.Stack(group, 0), nil
}

// matchesRole reports whether a parameter name matches a role path.
// The path must span the tail of the name and sit immediately after a
// numeric layer-index segment, so the role path "output.dense.weight"
// selects "layer.4.output.dense.weight" without also catching
// "layer.4.attention.output.dense.weight".
func matchesRole(name, path string) bool {
	i := len(name) - len(path)
	if i < 0 || name[i:] != path {
		return false
	}
	if i == 0 || name[i-1] != '.' {
		return false
	}
	rest := name[:i-1]
	seg := rest[strings.LastIndex(rest, ".")+1:]
	if seg == "" {
		return false
	}
	for _, c := range seg {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
