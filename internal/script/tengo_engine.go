package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// TengoEngine compiles and runs Tengo scripts under a set of security limits.
type TengoEngine struct {
	limits SecurityLimits
}

// NewTengoEngine creates a new Tengo engine with default security limits
func NewTengoEngine() *TengoEngine {
	return &TengoEngine{limits: DefaultSecurityLimits()}
}

// SetSecurityLimits configures resource and security constraints
func (e *TengoEngine) SetSecurityLimits(limits SecurityLimits) {
	e.limits = limits
}

// CompiledScript is a script ready to run. It is safe for concurrent use:
// every run works on its own clone.
type CompiledScript struct {
	Script   *Script
	compiled *tengo.Compiled
}

// Compile prepares a script for execution. vars declares the globals the
// script may read and assign; each starts out undefined.
func (e *TengoEngine) Compile(script *Script, vars ...string) (*CompiledScript, error) {
	s := tengo.NewScript([]byte(script.Content))
	s.SetImports(stdlib.GetModuleMap(e.allowedModules()...))
	if e.limits.MaxAllocs > 0 {
		s.SetMaxAllocs(e.limits.MaxAllocs)
	}

	for _, name := range vars {
		if err := s.Add(name, nil); err != nil {
			return nil, NewScriptError(ErrorTypeCompilation, script.Name, "declaring variable "+name, err)
		}
	}
	if err := s.Add("log", logFunction(script.Name)); err != nil {
		return nil, NewScriptError(ErrorTypeCompilation, script.Name, "adding log function", err)
	}

	compiled, err := s.Compile()
	if err != nil {
		return nil, NewScriptError(ErrorTypeCompilation, script.Name, "failed to compile", err)
	}
	return &CompiledScript{Script: script, compiled: compiled}, nil
}

// Execute runs a compiled script with the given inputs and returns the final
// value of every declared variable. Undefined values come back as nil.
func (e *TengoEngine) Execute(ctx context.Context, cs *CompiledScript, input map[string]any) (map[string]any, error) {
	run := cs.compiled.Clone()
	for name, value := range input {
		if err := run.Set(name, value); err != nil {
			return nil, NewScriptError(ErrorTypeExecution, cs.Script.Name, "setting variable "+name, err)
		}
	}

	execCtx := ctx
	if e.limits.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.limits.MaxExecutionTime)
		defer cancel()
	}

	if err := run.RunContext(execCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewScriptError(ErrorTypeTimeout, cs.Script.Name, "script execution timed out", err)
		}
		return nil, NewScriptError(ErrorTypeExecution, cs.Script.Name, "script execution failed", err)
	}

	out := make(map[string]any)
	for _, v := range run.GetAll() {
		if v.Name() == "log" {
			continue
		}
		if v.IsUndefined() {
			out[v.Name()] = nil
			continue
		}
		out[v.Name()] = v.Value()
	}
	return out, nil
}

func (e *TengoEngine) allowedModules() []string {
	out := make([]string, 0, len(e.limits.AllowedPackages))
	for _, name := range e.limits.AllowedPackages {
		if _, ok := stdlib.BuiltinModules[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// logFunction exposes log(msg) to scripts, writing through slog.
func logFunction(scriptName string) *tengo.UserFunction {
	return &tengo.UserFunction{
		Name: "log",
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 1 {
				return nil, tengo.ErrWrongNumArguments
			}
			msg, ok := tengo.ToString(args[0])
			if !ok {
				msg = fmt.Sprint(args[0])
			}
			slog.Info("Script log", "event", "script_log", "script", scriptName, "message", msg)
			return tengo.UndefinedValue, nil
		},
	}
}
