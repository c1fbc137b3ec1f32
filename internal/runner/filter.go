package runner

import (
	"fmt"
	"path/filepath"

	"github.com/google/cel-go/cel"

	"github.com/autoextract/autoextract/internal/detect"
)

// CompileFilter compiles a CEL expression over archive attributes.
// The expression must evaluate to a boolean; archives it rejects are
// dropped from the scan result.
func CompileFilter(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("dir", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("password", cel.StringType),
		cel.Variable("size_mb", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile filter %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter %q must evaluate to a boolean, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter program: %w", err)
	}
	return prg, nil
}

// filterInput maps an archive to the variables the filter sees.
func filterInput(arc detect.Archive) map[string]any {
	return map[string]any{
		"name":     arc.Name(),
		"dir":      filepath.Dir(arc.Path),
		"kind":     string(arc.Kind),
		"password": arc.Password,
		"size_mb":  float64(arc.Size) / (1024 * 1024),
	}
}

// matches evaluates the filter for one archive. Evaluation errors
// exclude the archive rather than failing the scan.
func matches(prg cel.Program, arc detect.Archive) (bool, error) {
	out, _, err := prg.Eval(filterInput(arc))
	if err != nil {
		return false, err
	}
	keep, ok := out.Value().(bool)
	return ok && keep, nil
}
