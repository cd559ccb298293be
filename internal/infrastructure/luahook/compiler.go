// Package luahook compiles manifest-supplied Lua snippets into plugin
// lifecycle hooks.
//
// Each invocation runs in a fresh interpreter with only the base, table,
// string and math libraries opened. The snippet sees two globals, plugin_id
// and hook, plus a log(message) function. A hook fails when the snippet
// raises error(...) or returns false with an optional message.
package luahook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
	apperrors "github.com/alexisbeaulieu97/dashhost/pkg/errors"
)

// DefaultTimeout bounds a single hook invocation.
const DefaultTimeout = 5 * time.Second

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger routes the Lua log() function and hook diagnostics.
func WithLogger(logger ports.Logger) Option {
	return func(c *Compiler) {
		c.logger = logging.OrNoOp(logger).With("component", "luahook")
	}
}

// WithTimeout overrides DefaultTimeout. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Compiler) {
		c.timeout = d
	}
}

// Compiler implements ports.HookCompiler for Lua sources.
type Compiler struct {
	logger  ports.Logger
	timeout time.Duration
}

// NewCompiler creates a Compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		logger:  logging.NewNoOpLogger(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// CompileHook parses source once and returns a hook that executes it. An
// empty source yields a nil hook.
func (c *Compiler) CompileHook(pluginID, hook, source string) (domainplugin.Hook, error) {
	proto, err := compile(pluginID, hook, source)
	if err != nil || proto == nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return c.run(ctx, pluginID, hook, proto, nil)
	}, nil
}

// CompileErrorHook compiles an on_error snippet. The failure message is
// exposed to the snippet as err_message; errors raised by the snippet are
// logged and otherwise ignored.
func (c *Compiler) CompileErrorHook(pluginID, source string) (func(context.Context, error), error) {
	const hook = "on_error"
	proto, err := compile(pluginID, hook, source)
	if err != nil || proto == nil {
		return nil, err
	}
	return func(ctx context.Context, cause error) {
		message := ""
		if cause != nil {
			message = cause.Error()
		}
		globals := map[string]lua.LValue{"err_message": lua.LString(message)}
		if runErr := c.run(ctx, pluginID, hook, proto, globals); runErr != nil {
			c.logger.Warn(ctx, "on_error hook failed", "plugin_id", pluginID, "error", runErr)
		}
	}, nil
}

func compile(pluginID, hook, source string) (*lua.FunctionProto, error) {
	if strings.TrimSpace(source) == "" {
		return nil, nil
	}
	name := chunkName(pluginID, hook)
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, apperrors.NewPluginError(pluginID, fmt.Errorf("parse %s: %w", hook, err))
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, apperrors.NewPluginError(pluginID, fmt.Errorf("compile %s: %w", hook, err))
	}
	return proto, nil
}

func (c *Compiler) run(ctx context.Context, pluginID, hook string, proto *lua.FunctionProto, globals map[string]lua.LValue) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	L := newState()
	defer L.Close()
	L.SetContext(ctx)

	L.SetGlobal("plugin_id", lua.LString(pluginID))
	L.SetGlobal("hook", lua.LString(hook))
	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		c.logger.Info(ctx, L.CheckString(1), "plugin_id", pluginID, "hook", hook)
		return 0
	}))
	for name, value := range globals {
		L.SetGlobal(name, value)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = apperrors.NewHookError(pluginID, hook, fmt.Errorf("lua panic: %v", rec))
		}
	}()

	L.Push(L.NewFunctionFromProto(proto))
	if callErr := L.PCall(0, lua.MultRet, nil); callErr != nil {
		return apperrors.NewHookError(pluginID, hook, errors.New(errorMessage(callErr)))
	}
	return resultError(L, pluginID, hook)
}

// resultError inspects the chunk's return values: `return false, "why"`
// fails the hook.
func resultError(L *lua.LState, pluginID, hook string) error {
	if L.GetTop() == 0 {
		return nil
	}
	if first := L.Get(1); first.Type() == lua.LTBool && !lua.LVAsBool(first) {
		message := "hook returned false"
		if L.GetTop() >= 2 {
			if s, ok := L.Get(2).(lua.LString); ok && s != "" {
				message = string(s)
			}
		}
		return apperrors.NewHookError(pluginID, hook, errors.New(message))
	}
	return nil
}

func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// The base library exposes file loaders.
	for _, name := range []string{"dofile", "loadfile"} {
		L.SetGlobal(name, lua.LNil)
	}
	// Library openers leave their module tables on the stack.
	L.SetTop(0)
	return L
}

func errorMessage(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return apiErr.Object.String()
	}
	return err.Error()
}

func chunkName(pluginID, hook string) string {
	return pluginID + "." + hook
}

var _ ports.HookCompiler = (*Compiler)(nil)
