package scenario

import (
	"context"
	"time"

	"github.com/dwmkerr/shellrec/internal/console"
)

// tmux-resurrect entry points on the demo host. Save and restore are
// driven from outside tmux via `tmux run-shell`: sending the prefix key
// through the terminal emulator is timing-unreliable, a single-shot
// command injection is not.
const (
	resurrectSave    = "~/.tmux/plugins/tmux-resurrect/scripts/save.sh"
	resurrectRestore = "~/.tmux/plugins/tmux-resurrect/scripts/restore.sh"
)

const listPanesFormat = "#{session_name}:#{window_index}.#{pane_index} active=#{pane_active} cmd=#{pane_current_command}"

type stepKind int

const (
	stepSend stepKind = iota
	stepWait
	stepRecordStart
	stepRecordStop
	stepSnapshot
)

// Step is one element of the fixed scenario. Steps execute strictly in
// order with no concurrency; the delay values are part of the step data
// rather than hidden in the executor.
type Step struct {
	Kind    stepKind
	Input   string  // stepSend: input injected into the session
	DelayMS int     // stepSend: keystroke delay passed to the emulator
	Seconds float64 // stepWait: settle duration
	FPS     int     // stepRecordStart
	Name    string  // stepSnapshot, stepRecordStop: artifact name
}

func send(input string, delayMS int) Step {
	return Step{Kind: stepSend, Input: input, DelayMS: delayMS}
}

func settle(seconds float64) Step {
	return Step{Kind: stepWait, Seconds: seconds}
}

// SaveRestoreSteps is the recorded narrative: list the live tmux state,
// save it, prove the save, destroy the server, prove the destruction,
// restore, and prove the restore. The long settles bracket session
// destruction and restore, where the remote side does the most work.
func SaveRestoreSteps() []Step {
	return []Step{
		{Kind: stepRecordStart, FPS: 8},

		// Running sessions with their windows and panes, pre-save.
		send("tmux list-sessions"+enter, 1500),
		settle(1.5),
		send("tmux list-windows -a"+enter, 1000),
		settle(1),
		send("tmux list-panes -a -F '"+listPanesFormat+"'"+enter, 1000),
		settle(1.5),

		// Save: runs save.sh, which stores the layout and fires the
		// post-save hook that records assistant session IDs.
		send("tmux run-shell "+resurrectSave+enter, 500),
		settle(6),

		// Show the saved assistant sessions JSON.
		send("cat ~/.tmux/resurrect/assistant-sessions.json | jq '[ .sessions[] | {pane, tool, session_id} ]'"+enter, 500),
		settle(3),
		{Kind: stepSnapshot, Name: "verify-saved-json"},

		// Destroy everything.
		send("tmux kill-server"+enter, 1500),
		settle(1.5),
		send("tmux list-sessions"+enter, 1500),
		settle(2),

		// Fresh detached server to restore into; continuum auto-restore
		// off so the restore below is the one on film.
		send("tmux new-session -d -s main"+enter, 2000),
		send("tmux set-option -g @continuum-restore 'off'"+enter, 500),
		settle(0.5),

		// Restore recreates the saved sessions and resumes agent panes.
		send("tmux run-shell "+resurrectRestore+enter, 500),
		settle(15),

		// Drop the bootstrap session and clean the frame.
		send("tmux kill-session -t main 2>/dev/null"+enter, 500),
		settle(0.5),
		send("clear"+enter, 500),
		settle(0.5),

		// Restored sessions with their windows and panes.
		send("tmux list-sessions"+enter, 1500),
		settle(2),
		send("tmux list-windows -a"+enter, 1000),
		settle(1),
		send("tmux list-panes -a -F '"+listPanesFormat+"'"+enter, 1000),
		settle(1.5),

		// The restore log names the assistants that were resumed.
		send("tail -4 ~/.tmux/resurrect/assistant-restore.log"+enter, 1500),
		settle(2),
		{Kind: stepSnapshot, Name: "verify-restored-sessions"},

		// Attach to the restored agent session. TMUX is unset in case a
		// prior attach leaked it, which would trip the nesting guard.
		send("unset TMUX; tmux attach -t skynet"+enter, 3000),
		settle(8),
		{Kind: stepSnapshot, Name: "verify-agent-tui"},

		{Kind: stepRecordStop, Name: "demo-save-restore"},
	}
}

// Director runs the scenario end to end: open the session, enter the
// remote host (unrecorded), execute the step sequence, tear the session
// down. Everything is strictly serial; the session handle never leaves
// this flow. Any step failure aborts the run with the session left as-is.
type Director struct {
	inv    *Invoker
	dl     *Downloader
	shell  *Shell
	waiter *Waiter
	con    *console.Console
	host   string
}

// Option configures optional director behavior.
type Option func(*Director)

// WithSleep replaces the settle-delay sleep, for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Director) { d.waiter.sleep = sleep }
}

func NewDirector(inv *Invoker, dl *Downloader, con *console.Console, host string, options ...Option) *Director {
	d := &Director{
		inv:    inv,
		dl:     dl,
		shell:  NewShell(inv),
		waiter: NewWaiter(con),
		con:    con,
		host:   host,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// Run records the full save -> kill -> restore cycle.
func (d *Director) Run(ctx context.Context) error {
	d.con.Banner("Recording: save -> kill -> restore cycle")

	if err := d.shell.Open(ctx); err != nil {
		return err
	}
	if err := d.shell.RemoteEnter(ctx, d.host); err != nil {
		return err
	}

	for _, step := range SaveRestoreSteps() {
		if err := d.run(ctx, step); err != nil {
			return err
		}
	}

	return d.shell.Close(ctx)
}

func (d *Director) run(ctx context.Context, step Step) error {
	switch step.Kind {
	case stepWait:
		d.waiter.Wait(step.Seconds)
		return nil
	case stepSend:
		_, err := d.inv.Call(ctx, "shell_send", map[string]any{
			"session_id": d.shell.ID(),
			"input":      step.Input,
			"delay_ms":   step.DelayMS,
		})
		return err
	case stepRecordStart:
		_, err := d.inv.Call(ctx, "shell_record_start", map[string]any{
			"session_id": d.shell.ID(),
			"fps":        step.FPS,
		})
		return err
	case stepSnapshot:
		res, err := d.inv.Call(ctx, "shell_screenshot", map[string]any{
			"session_id": d.shell.ID(),
			"name":       step.Name,
		})
		if err != nil {
			return err
		}
		return d.dl.Fetch(ctx, res)
	case stepRecordStop:
		res, err := d.inv.Call(ctx, "shell_record_stop", map[string]any{
			"session_id": d.shell.ID(),
			"name":       step.Name,
		})
		if err != nil {
			return err
		}
		return d.dl.Fetch(ctx, res)
	}
	return nil
}
