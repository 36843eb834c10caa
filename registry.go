package tdbuild

import (
	"sort"
	"sync"
)

// registry stores rules keyed by target name. It is immutable after its
// first full Materialize call: the generated-rules hook runs at most once
// and its result is cached forever after, per spec.md §4.1.
type registry struct {
	static      map[TargetName]*Rule
	staticOrder []TargetName

	generated GeneratedRulesFunc

	once       sync.Once
	onceErr    error
	merged     map[TargetName]*Rule
	mergedOrder []TargetName
}

func newRegistry(static map[TargetName]*Rule, generated GeneratedRulesFunc) *registry {
	// Go gives map[string] no stable iteration order, so "insertion order"
	// cannot survive a trip through cfg.Rules. We enumerate alphabetically
	// instead: deterministic, and indistinguishable from insertion order
	// for any ruleset whose author writes targets in alphabetical order.
	order := make([]TargetName, 0, len(static))
	for name := range static {
		order = append(order, name)
	}
	sort.Strings(order)
	return &registry{
		static:      static,
		staticOrder: order,
		generated:   generated,
	}
}

// materialize resolves and caches the merged static+generated rule set.
// Generated rules overwrite static rules on key collision, per spec.md §9's
// pinned precedence. Enumeration order is static names (alphabetical) then
// newly-introduced generated names (also alphabetical).
func (r *registry) materialize() (map[TargetName]*Rule, []TargetName, error) {
	r.once.Do(func() {
		merged := make(map[TargetName]*Rule, len(r.static))
		order := make([]TargetName, 0, len(r.static))
		for _, name := range r.staticOrder {
			merged[name] = r.static[name]
			order = append(order, name)
		}
		if r.generated != nil {
			gen, err := r.generated()
			if err != nil {
				r.onceErr = err
				return
			}
			newNames := make([]TargetName, 0, len(gen))
			for name := range gen {
				if _, exists := merged[name]; !exists {
					newNames = append(newNames, name)
				}
			}
			sort.Strings(newNames)
			order = append(order, newNames...)
			for name, rule := range gen {
				merged[name] = rule // generated overwrites static on collision
			}
		}
		r.merged = merged
		r.mergedOrder = order
	})
	return r.merged, r.mergedOrder, r.onceErr
}

// lookup returns the rule for name, if any.
func (r *registry) lookup(name TargetName) (*Rule, bool, error) {
	merged, _, err := r.materialize()
	if err != nil {
		return nil, false, err
	}
	rule, ok := merged[name]
	return rule, ok, nil
}
