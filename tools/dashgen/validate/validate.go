// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and reference only known metrics.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/storefront-proxy/tools/dashgen/rules"
)

// Result collects validation findings.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r *Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Expr parses expr and checks the metric names it selects against known.
func Expr(where, expr string, known map[string]bool, r *Result) {
	parsed, err := parser.ParseExpr(expr)
	if err != nil {
		r.errorf("%s: invalid PromQL %q: %v", where, expr, err)
		return
	}

	for _, name := range metricNames(parsed) {
		if !known[name] {
			r.errorf("%s: unknown metric %q", where, name)
		}
	}
}

func metricNames(expr parser.Expr) []string {
	seen := map[string]bool{}
	parser.Inspect(expr, func(node parser.Node, _ []parser.Node) error {
		if vs, ok := node.(*parser.VectorSelector); ok && vs.Name != "" {
			seen[vs.Name] = true
		}
		return nil
	})

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dashboard validates every target expression in a built dashboard. It
// walks the dashboard's JSON form so rows and nested panels are covered
// alike. Panels without targets are reported as warnings.
func Dashboard(dash any, known map[string]bool) *Result {
	r := &Result{}

	data, err := json.Marshal(dash)
	if err != nil {
		r.errorf("encoding dashboard: %v", err)
		return r
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		r.errorf("decoding dashboard: %v", err)
		return r
	}

	walkPanels(tree, func(title string, panel map[string]any) {
		targets, _ := panel["targets"].([]any)
		if len(targets) == 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("panel %q has no targets", title))
			return
		}
		for _, t := range targets {
			target, _ := t.(map[string]any)
			expr, _ := target["expr"].(string)
			if expr == "" {
				r.errorf("panel %q: target without expr", title)
				continue
			}
			Expr(fmt.Sprintf("panel %q", title), expr, known, r)
		}
	})

	return r
}

// walkPanels calls fn for every non-row panel.
func walkPanels(node any, fn func(title string, panel map[string]any)) {
	switch v := node.(type) {
	case map[string]any:
		if panels, ok := v["panels"].([]any); ok {
			for _, p := range panels {
				walkPanels(p, fn)
			}
		}
		typ, _ := v["type"].(string)
		if _, isPanel := v["datasource"]; isPanel && typ != "row" {
			title, _ := v["title"].(string)
			fn(title, v)
		}
	case []any:
		for _, item := range v {
			walkPanels(item, fn)
		}
	}
}

// Rules validates every expression in a PrometheusRule and returns the
// names it records, so callers can treat them as known metrics.
func Rules(cr rules.PrometheusRule, known map[string]bool) *Result {
	r := &Result{}
	for _, g := range cr.Spec.Groups {
		for _, rule := range g.Rules {
			name := rule.Record
			if name == "" {
				name = rule.Alert
			}
			if name == "" {
				r.errorf("group %s: rule without record or alert name", g.Name)
			}
			Expr(fmt.Sprintf("rule %s", name), rule.Expr, known, r)
		}
	}
	return r
}
