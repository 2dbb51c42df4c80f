package nn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ember-ml/ember/internal/tensor"
)

// Sequential chains modules so each output feeds the next input.
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a Sequential container from the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Forward applies every module in order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters collects the parameters of every module in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// Add appends a module to the end of the chain.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Module returns the module at index i.
func (s *Sequential[B]) Module(i int) Module[B] {
	if i < 0 || i >= len(s.modules) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.modules[i]
}

// StateDict returns all parameters keyed by module index, e.g.
// "1.weight" for the weight of the second module.
func (s *Sequential[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	for i, module := range s.modules {
		for name, raw := range module.StateDict() {
			state[fmt.Sprintf("%d.%s", i, name)] = raw
		}
	}
	return state
}

// LoadStateDict distributes entries to modules by their index prefix.
// The key set must match the architecture exactly: keys addressing a
// module index the chain does not have, entries for parameter-free
// modules, and parameter-bearing modules left without entries are all
// errors.
func (s *Sequential[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	perModule := make(map[int]map[string]*tensor.RawTensor)
	for key, raw := range state {
		prefix, name, ok := strings.Cut(key, ".")
		if !ok {
			return fmt.Errorf("malformed state key %q", key)
		}
		idx, err := strconv.Atoi(prefix)
		if err != nil {
			return fmt.Errorf("malformed state key %q: %v", key, err)
		}
		if idx < 0 || idx >= len(s.modules) {
			return fmt.Errorf("state key %q addresses module %d, model has %d modules", key, idx, len(s.modules))
		}
		if perModule[idx] == nil {
			perModule[idx] = make(map[string]*tensor.RawTensor)
		}
		perModule[idx][name] = raw
	}

	for i, module := range s.modules {
		moduleState := perModule[i]
		if len(module.Parameters()) == 0 {
			if len(moduleState) > 0 {
				return fmt.Errorf("module %d has no parameters but state dict carries %d entries for it", i, len(moduleState))
			}
			continue
		}
		if err := module.LoadStateDict(moduleState); err != nil {
			return fmt.Errorf("module %d: %w", i, err)
		}
	}
	return nil
}
