package scenario

import (
	"context"

	"github.com/dwmkerr/shellrec/internal/console"
)

// ToolCaller is the narrow slice of the MCP client the scenario needs.
// *mcp.Client satisfies it; tests substitute a scripted fake.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// Invoker issues single remote operations and parses their results. It
// narrates each call on the console with the session identifier redacted;
// the identifier is still part of the transmitted arguments. There are no
// retries: a failed call is fatal to the run.
type Invoker struct {
	caller ToolCaller
	con    *console.Console
}

func NewInvoker(caller ToolCaller, con *console.Console) *Invoker {
	return &Invoker{caller: caller, con: con}
}

func (i *Invoker) Call(ctx context.Context, tool string, args map[string]any) (Result, error) {
	i.con.Call(tool, args)
	text, err := i.caller.CallTool(ctx, tool, args)
	if err != nil {
		return Result{}, err
	}
	return ParseResult(text), nil
}
