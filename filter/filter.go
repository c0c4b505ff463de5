package filter

import (
	"fmt"
	"iter"
	"maps"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/go-replicate/replicate"
)

// Filter is a compiled boolean expression over files or predictions.
// It is safe for concurrent use.
type Filter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// Option configures a Compiler
type Option func(*Compiler)

// WithCache keeps up to size compiled filters keyed by expression.
func WithCache(size int) Option {
	return func(c *Compiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// WithCustomFunctions adds helper functions available to every expression.
func WithCustomFunctions(funcs map[string]any) Option {
	return func(c *Compiler) {
		maps.Copy(c.helpers, funcs)
	}
}

// Compiler turns expressions into Filters.
type Compiler struct {
	helpers map[string]any
	cache   *lruCache
}

// NewCompiler creates a compiler with the standard helpers.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{helpers: staticHelpers()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile checks expression and prepares it for evaluation. Record fields
// such as Size or Status are resolved at evaluation time.
func (c *Compiler) Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{Expression: expression, Reason: "empty expression"}
	}

	if c.cache != nil {
		if f, ok := c.cache.Get(expression); ok {
			return f, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.helpers),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	f := &Filter{expression: expression, program: program, helpers: c.helpers}
	if c.cache != nil {
		c.cache.Put(expression, f)
	}
	return f, nil
}

// Clear drops every cached filter.
func (c *Compiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters.
func (c *Compiler) Size() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// Compile compiles expression with a default compiler.
func Compile(expression string) (*Filter, error) {
	return NewCompiler().Compile(expression)
}

// Expression returns the source expression.
func (f *Filter) Expression() string {
	return f.expression
}

// MatchFile evaluates the filter against a file.
func (f *Filter) MatchFile(file replicate.File) (bool, error) {
	return f.run(fileEnv(f.helpers, file), "file "+file.ID)
}

// MatchPrediction evaluates the filter against a prediction.
func (f *Filter) MatchPrediction(p replicate.Prediction) (bool, error) {
	return f.run(predictionEnv(f.helpers, p), "prediction "+p.ID)
}

func (f *Filter) run(env map[string]any, record string) (bool, error) {
	out, err := expr.Run(f.program, env)
	if err != nil {
		return false, &EvaluationError{Expression: f.expression, Record: record, Err: err}
	}
	matched, ok := out.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression: f.expression,
			Record:     record,
			Err:        fmt.Errorf("expression returned %T, want bool", out),
		}
	}
	return matched, nil
}

// Select yields the items of seq that match. Errors from seq or from match
// are passed through and end the sequence.
func Select[T any](seq iter.Seq2[T, error], match func(T) (bool, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item, err := range seq {
			if err != nil {
				yield(item, err)
				return
			}
			ok, err := match(item)
			if err != nil {
				yield(item, err)
				return
			}
			if ok && !yield(item, nil) {
				return
			}
		}
	}
}

// Files filters a file sequence.
func Files(seq iter.Seq2[replicate.File, error], f *Filter) iter.Seq2[replicate.File, error] {
	return Select(seq, f.MatchFile)
}

// Predictions filters a prediction sequence.
func Predictions(seq iter.Seq2[replicate.Prediction, error], f *Filter) iter.Seq2[replicate.Prediction, error] {
	return Select(seq, f.MatchPrediction)
}
