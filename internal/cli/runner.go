package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/AnatoleLucet/recon"
	"github.com/AnatoleLucet/recon/memhost"
)

// TraceEntry is one observable event of a run.
type TraceEntry struct {
	Step  int    `json:"step"`
	Pass  uint64 `json:"pass"`
	Event string `json:"event"`
	Node  string `json:"node,omitempty"`
}

func (e TraceEntry) String() string {
	if e.Node == "" {
		return fmt.Sprintf("step %d pass %d: %s", e.Step, e.Pass, e.Event)
	}
	return fmt.Sprintf("step %d pass %d: %s %s", e.Step, e.Pass, e.Event, e.Node)
}

// Result is the outcome of a scenario run.
type Result struct {
	Trace  []TraceEntry
	Markup string
}

type runner struct {
	sc *Scenario

	s         *recon.Scheduler
	host      *memhost.Host
	container *memhost.Container

	rootClass *memhost.Class
	classes   map[string]*memhost.Class
	root      *memhost.Instance
	instances map[string]*memhost.Instance

	step  int
	trace []TraceEntry

	// first error raised from a render
	err error
}

// RunScenario mounts the scenario's tree on a fresh scheduler, then runs
// every step as one batch.
func RunScenario(sc *Scenario, opts ...recon.Option) (*Result, error) {
	r := &runner{
		sc:        sc,
		s:         recon.NewScheduler(opts...),
		classes:   make(map[string]*memhost.Class, len(sc.Nodes)),
		instances: make(map[string]*memhost.Instance, len(sc.Nodes)),
	}
	r.host = memhost.New(r.s)
	r.container = r.host.NewContainer(nil)

	for _, n := range sc.Nodes {
		r.classes[n.Name] = r.nodeClass(n)
	}
	r.rootClass = &memhost.Class{
		Name: "Root",
		Render: func(self *memhost.Instance) any {
			r.emit("render", "Root")
			return r.renderRoot(self)
		},
		DidMount: func(self *memhost.Instance) { r.root = self },
	}

	if err := r.mount(); err != nil {
		return nil, err
	}

	for i, step := range sc.Steps {
		r.step = i + 1
		if err := r.run(step); err != nil {
			return nil, fmt.Errorf("step %d: %w", r.step, err)
		}
	}

	return &Result{
		Trace:  r.trace,
		Markup: r.container.String(),
	}, nil
}

func (r *runner) nodeClass(spec NodeSpec) *memhost.Class {
	return &memhost.Class{
		Name: spec.Name,
		InitialState: func(map[string]any) map[string]any {
			return map[string]any{"ticks": 0}
		},
		Render: func(self *memhost.Instance) any {
			r.emit("render", spec.Name)

			// the first render after mount
			if self.Renders() == 2 {
				for _, target := range spec.Cascade {
					r.fail(r.instances[target].SetState(tick))
				}
			}

			return memhost.El("node", map[string]any{
				"name":  spec.Name,
				"ticks": self.State["ticks"],
			})
		},
		DidMount: func(self *memhost.Instance) { r.instances[spec.Name] = self },
	}
}

func (r *runner) renderRoot(self *memhost.Instance) any {
	children := make([]any, 0, len(r.sc.Nodes))
	for _, n := range r.sc.Nodes {
		el := memhost.El(r.classes[n.Name], nil)
		if n.Ref != "" {
			el = self.Own(el, recon.NamedRef(n.Ref))
		}
		children = append(children, el)
	}

	return memhost.El("root", nil, children...)
}

func (r *runner) mount() error {
	if _, err := r.container.Render(memhost.El(r.rootClass, nil)); err != nil {
		return err
	}
	if r.err != nil {
		return r.err
	}

	refs := r.root.Refs()
	for _, name := range slices.Sorted(maps.Keys(refs)) {
		target := "<nil>"
		if inst, ok := refs[name].(*memhost.Instance); ok {
			target = inst.Name()
		}
		r.emit("ref "+name+" ->", target)
	}

	return nil
}

func (r *runner) run(step Step) error {
	var callbacks []func(*memhost.Instance)
	if step.Callbacks {
		callbacks = append(callbacks, func(inst *memhost.Instance) {
			r.emit("callback", inst.Name())
		})
	}

	err := r.s.BatchedUpdates(func() error {
		if step.Rerender {
			if _, err := r.container.Render(memhost.El(r.rootClass, nil)); err != nil {
				return err
			}
		}

		for _, name := range step.Update {
			if err := r.instances[name].SetState(tick, callbacks...); err != nil {
				return err
			}
		}

		for _, name := range step.Force {
			if err := r.instances[name].ForceUpdate(callbacks...); err != nil {
				return err
			}
		}

		if step.Asap {
			r.s.Asap(func(any, any) { r.emit("asap", "") }, nil)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return r.err
}

func (r *runner) emit(event, node string) {
	r.trace = append(r.trace, TraceEntry{
		Step:  r.step,
		Pass:  r.s.Generation(),
		Event: event,
		Node:  node,
	})
}

func (r *runner) fail(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}

func tick(state map[string]any) map[string]any {
	ticks, _ := state["ticks"].(int)
	return map[string]any{"ticks": ticks + 1}
}
