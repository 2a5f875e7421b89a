package plan

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dominikbraun/graph"
)

// A named build stage.
//
// Exactly one of From and Parent is set: From names a registry image for
// root stages, Parent names the stage this one extends.
type Stage struct {
	Name   string `yaml:"name"`
	From   string `yaml:"from,omitempty"`
	Parent string `yaml:"parent,omitempty"`
	Steps  []Step `yaml:"steps"`
}

// Returns a deep copy of the stage.
func (s Stage) clone() Stage {
	steps := make([]Step, len(s.Steps))
	for i, step := range s.Steps {
		steps[i] = step.clone()
	}
	s.Steps = steps
	return s
}

// Names of the stages this stage depends on, parent first.
func (s Stage) dependencies() []string {
	var deps []string
	if s.Parent != "" {
		deps = append(deps, s.Parent)
	}
	for _, step := range s.Steps {
		if step.Kind == StepCopyStage && !slices.Contains(deps, step.Stage) {
			deps = append(deps, step.Stage)
		}
	}
	return deps
}

// An immutable, validated build plan.
//
// The zero value is an empty plan with no target. Accessors return copies, so
// a Plan can be shared freely.
type Plan struct {
	platform string           // OCI platform for every stage (e.g., "linux/amd64").
	target   string           // Stage materialized by engines.
	stages   map[string]Stage // Stages by name.
	order    []string         // Stable topological order of stage names.
}

// Validates the stages and returns a plan targeting the named stage.
func Build(platform, target string, stages []Stage) (Plan, error) {
	if platform == "" {
		return Plan{}, fmt.Errorf("%w: empty platform", ErrPlan)
	}

	p := Plan{
		platform: platform,
		target:   target,
		stages:   make(map[string]Stage, len(stages)),
	}

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	for _, s := range stages {
		if err := validateStage(s); err != nil {
			return Plan{}, err
		}
		if err := g.AddVertex(s.Name); err != nil {
			if errors.Is(err, graph.ErrVertexAlreadyExists) {
				return Plan{}, fmt.Errorf("%w: duplicate stage %q", ErrPlan, s.Name)
			}
			return Plan{}, fmt.Errorf("%w: %w", ErrPlan, err)
		}
		p.stages[s.Name] = s.clone()
	}

	for _, s := range stages {
		for _, dep := range s.dependencies() {
			if err := g.AddEdge(dep, s.Name); err != nil {
				switch {
				case errors.Is(err, graph.ErrVertexNotFound):
					return Plan{}, fmt.Errorf("%w: stage %q depends on %w %q", ErrPlan, s.Name, ErrUnknownStage, dep)
				case errors.Is(err, graph.ErrEdgeCreatesCycle):
					return Plan{}, fmt.Errorf("%w: stage %q depending on %q creates a cycle", ErrPlan, s.Name, dep)
				default:
					return Plan{}, fmt.Errorf("%w: %w", ErrPlan, err)
				}
			}
		}
	}

	if _, ok := p.stages[target]; !ok {
		return Plan{}, fmt.Errorf("%w: target: %w %q", ErrPlan, ErrUnknownStage, target)
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %w", ErrPlan, err)
	}
	p.order = order

	return p, nil
}

// Checks the fields of a single stage.
func validateStage(s Stage) error {
	if s.Name == "" {
		return fmt.Errorf("%w: stage without a name", ErrPlan)
	}
	if (s.From == "") == (s.Parent == "") {
		return fmt.Errorf("%w: stage %q must set exactly one of from and parent", ErrPlan, s.Name)
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("%w: stage %q step %d: %w", ErrPlan, s.Name, i+1, err)
		}
	}
	return nil
}

// Checks that a step carries the fields its kind requires.
func validateStep(s Step) error {
	switch s.Kind {
	case StepLabel, StepEnv:
		if s.Key == "" {
			return errors.New("missing key")
		}
	case StepWorkdir:
		if s.Value == "" {
			return errors.New("missing path")
		}
	case StepExec, StepDefaultArgs:
		if len(s.Args) == 0 {
			return errors.New("missing command")
		}
	case StepCopyFile:
		if s.Source == "" || s.Dest == "" {
			return errors.New("missing source or destination")
		}
	case StepCopyContext:
		if s.Dest == "" {
			return errors.New("missing destination")
		}
	case StepCopyStage:
		if s.Stage == "" || s.Source == "" || s.Dest == "" {
			return errors.New("missing stage, source or destination")
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// Platform every stage is built for.
func (p Plan) Platform() string {
	return p.platform
}

// Name of the stage engines materialize.
func (p Plan) Target() string {
	return p.target
}

// Stage names in build order.
func (p Plan) Order() []string {
	return slices.Clone(p.order)
}

// Stages in build order. Every stage comes after its parent and after any
// stage it copies from.
func (p Plan) Stages() []Stage {
	stages := make([]Stage, len(p.order))
	for i, name := range p.order {
		stages[i] = p.stages[name].clone()
	}
	return stages
}

// Returns the named stage.
func (p Plan) Stage(name string) (Stage, bool) {
	s, ok := p.stages[name]
	if !ok {
		return Stage{}, false
	}
	return s.clone(), true
}

// Returns the root image of the named stage and every step leading to it,
// from the root stage down to the stage itself.
//
// Steps of sibling stages never appear in a lineage: a stage sees only its
// own ancestors.
func (p Plan) Lineage(name string) (from string, steps []Step, err error) {
	var chain []Stage
	for cur := name; cur != ""; {
		s, ok := p.stages[cur]
		if !ok {
			return "", nil, fmt.Errorf("%w %q", ErrUnknownStage, cur)
		}
		chain = append(chain, s)
		from = s.From
		cur = s.Parent
	}

	for i := len(chain) - 1; i >= 0; i-- {
		for _, step := range chain[i].Steps {
			steps = append(steps, step.clone())
		}
	}
	return from, steps, nil
}

// Serializable form of a plan.
type document struct {
	Platform string  `yaml:"platform"`
	Target   string  `yaml:"target"`
	Stages   []Stage `yaml:"stages"`
}

// Renders the plan with its stages in build order.
func (p Plan) MarshalYAML() (any, error) {
	return document{
		Platform: p.platform,
		Target:   p.target,
		Stages:   p.Stages(),
	}, nil
}
