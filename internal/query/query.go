// Package query filters inventory collections by name glob and by expr-lang
// expressions evaluated against each Inventory.
package query

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/moby/patternmatcher"

	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/pkg/models"
)

// Filter selects inventories. The zero Filter matches everything.
type Filter struct {
	where string
	prog  *vm.Program
	names *patternmatcher.PatternMatcher
}

// Compile builds a Filter. where is an expression over the Inventory's
// fields, for example `Owner == "u1" && len(Items) > 0` or
// `any(Items, .EAN != nil)`. names are glob patterns matched against the
// inventory name; a leading "!" excludes. Either may be empty.
func Compile(where string, names []string) (*Filter, error) {
	f := &Filter{where: where}
	if where != "" {
		prog, err := expr.Compile(where, expr.Env(models.Inventory{}), expr.AsBool())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid where expression").
				WithDetail("where", where)
		}
		f.prog = prog
	}
	if len(names) > 0 {
		pm, err := patternmatcher.New(names)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid name pattern").
				WithDetail("patterns", names)
		}
		f.names = pm
	}
	return f, nil
}

// Empty reports whether the filter accepts everything.
func (f *Filter) Empty() bool {
	return f == nil || (f.prog == nil && f.names == nil)
}

// Match reports whether inv passes the filter.
func (f *Filter) Match(inv models.Inventory) (bool, error) {
	if f.Empty() {
		return true, nil
	}
	if f.names != nil {
		// Names are not paths: "Fridge" must not select "Fridge/Door".
		ok, _, err := f.names.MatchesUsingParentResults(inv.Name, patternmatcher.MatchInfo{})
		if err != nil {
			return false, fmt.Errorf("matching name %q: %w", inv.Name, err)
		}
		if !ok {
			return false, nil
		}
	}
	if f.prog != nil {
		out, err := expr.Run(f.prog, inv)
		if err != nil {
			return false, fmt.Errorf("evaluating %q on %s: %w", f.where, inv.UUID, err)
		}
		ok, _ := out.(bool)
		return ok, nil
	}
	return true, nil
}

// Apply returns the inventories that pass the filter, in order.
func (f *Filter) Apply(inventories []models.Inventory) ([]models.Inventory, error) {
	if f.Empty() {
		return inventories, nil
	}
	out := make([]models.Inventory, 0, len(inventories))
	for _, inv := range inventories {
		ok, err := f.Match(inv)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, inv)
		}
	}
	return out, nil
}
