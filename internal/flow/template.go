package flow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
)

// braceExpr matches a `{{ ... }}` interpolation inside a larger command
// template string, e.g. "rustfmt {{ os-target }}".
var braceExpr = regexp.MustCompile(`\{\{(.*?)\}\}`)

// EvalExpr compiles and runs expression against ctx. Context keys may
// contain hyphens (os-target, format-status, ...), which are not valid
// expr-lang identifiers, so keys actually present in ctx are rewritten to
// bracket-indexed access on a `ctx` map before compilation.
func EvalExpr(expression string, ctx Context) (any, error) {
	rewritten := rewriteKeys(expression, ctx)
	program, err := expr.Compile(rewritten, expr.Env(map[string]any{"ctx": map[string]any(ctx)}))
	if err != nil {
		return nil, fmt.Errorf("flow: invalid expression %q: %w", expression, err)
	}
	result, err := expr.Run(program, map[string]any{"ctx": map[string]any(ctx)})
	if err != nil {
		return nil, fmt.Errorf("flow: failed to evaluate %q: %w", expression, err)
	}
	return result, nil
}

// EvalCond compiles and runs a branch condition, returning its truthiness
// per spec.md §4.3.
func EvalCond(cond string, ctx Context) (bool, error) {
	result, err := EvalExpr(cond, ctx)
	if err != nil {
		return false, err
	}
	return Truthy(result), nil
}

// RenderTemplate substitutes every `{{ expr }}` occurrence in tmpl with the
// stringified result of evaluating expr against ctx. Used for CommandIO and
// SimpleCommand shell templates (spec.md §4.3).
func RenderTemplate(tmpl string, ctx Context) (string, error) {
	var evalErr error
	out := braceExpr.ReplaceAllStringFunc(tmpl, func(match string) string {
		if evalErr != nil {
			return match
		}
		inner := strings.TrimSpace(braceExpr.FindStringSubmatch(match)[1])
		result, err := EvalExpr(inner, ctx)
		if err != nil {
			evalErr = err
			return match
		}
		return stringify(result)
	})
	if evalErr != nil {
		return "", evalErr
	}
	return out, nil
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// rewriteKeys rewrites bare references to ctx's hyphenated keys (e.g.
// "os-target") into bracket-indexed form ("ctx[\"os-target\"]") so expr-lang
// can parse them as identifiers. Keys are tried longest-first so that, e.g.,
// "wasm-target" is not left with a dangling "target" replacement.
func rewriteKeys(expression string, ctx Context) string {
	if len(ctx) == 0 {
		return expression
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		if strings.Contains(k, "-") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return expression
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	escaped := make([]string, len(keys))
	for i, k := range keys {
		escaped[i] = regexp.QuoteMeta(k)
	}
	pattern := regexp.MustCompile(`\b(?:` + strings.Join(escaped, "|") + `)\b`)
	return pattern.ReplaceAllStringFunc(expression, func(key string) string {
		return fmt.Sprintf("ctx[%q]", key)
	})
}
