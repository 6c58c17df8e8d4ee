package scenario

import (
	"context"
	"fmt"
)

// Key sequences sent through the terminal. The tmux prefix on the demo
// host is Ctrl+a.
const (
	ctrlA = "\x01"
	enter = "\r"
)

// sanitizePrompt overwrites the shell prompt with a minimal string so the
// recording never shows a hostname, username, or working directory.
const sanitizePrompt = "export PS1='$ '\r"

// Shell owns one remote interactive session: it opens the session with a
// fixed geometry, normalizes the prompt, optionally enters a remote host
// over SSH, and tears the session down. Exactly one session is live per
// Shell; the handle is invalid after Close.
type Shell struct {
	inv       *Invoker
	sessionID string
	closed    bool
}

func NewShell(inv *Invoker) *Shell {
	return &Shell{inv: inv}
}

// ID returns the live session handle. Empty before Open and after Close.
func (s *Shell) ID() string {
	if s.closed {
		return ""
	}
	return s.sessionID
}

// Open starts a login shell with the recording geometry and sanitizes the
// local prompt.
func (s *Shell) Open(ctx context.Context) error {
	if s.sessionID != "" {
		return fmt.Errorf("shell already open")
	}
	res, err := s.inv.Call(ctx, "shell_start", map[string]any{
		"command": "bash",
		"args":    []string{"--login", "-i"},
		"cols":    140,
		"rows":    35,
		"theme":   "one-dark",
	})
	if err != nil {
		return err
	}
	sid, ok := res.String("shell_session_id")
	if !ok {
		return fmt.Errorf("shell_start: no session id in response")
	}
	s.sessionID = sid

	_, err = s.inv.Call(ctx, "shell_send", map[string]any{
		"session_id": sid,
		"input":      sanitizePrompt,
		"delay_ms":   500,
	})
	return err
}

// RemoteEnter SSHes to host, re-sanitizes the prompt on the far side, and
// clears the screen so the recording starts on a clean frame. Run before
// recording starts.
func (s *Shell) RemoteEnter(ctx context.Context, host string) error {
	sends := []struct {
		input   string
		delayMS int
	}{
		{"ssh " + host + enter, 3000},
		{sanitizePrompt, 500},
		{"clear" + enter, 500},
	}
	for _, send := range sends {
		if _, err := s.inv.Call(ctx, "shell_send", map[string]any{
			"session_id": s.sessionID,
			"input":      send.input,
			"delay_ms":   send.delayMS,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Close detaches from any nested tmux client, restores continuum
// auto-restore, exits the SSH shell, and stops the session. The detach is
// best-effort: the prefix key may not register, and the following exit
// tears the shell down regardless, so the outcome is not verified.
func (s *Shell) Close(ctx context.Context) error {
	if s.sessionID == "" || s.closed {
		return fmt.Errorf("shell is not open")
	}
	sends := []struct {
		input   string
		delayMS int
	}{
		{ctrlA + "d", 1000},
		{"tmux set-option -g @continuum-restore 'on' 2>/dev/null" + enter, 500},
		{"exit" + enter, 500},
	}
	for _, send := range sends {
		if _, err := s.inv.Call(ctx, "shell_send", map[string]any{
			"session_id": s.sessionID,
			"input":      send.input,
			"delay_ms":   send.delayMS,
		}); err != nil {
			return err
		}
	}
	if _, err := s.inv.Call(ctx, "shell_stop", map[string]any{
		"session_id": s.sessionID,
	}); err != nil {
		return err
	}
	s.closed = true
	return nil
}
