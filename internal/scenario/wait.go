package scenario

import (
	"time"

	"github.com/dwmkerr/shellrec/internal/console"
)

// Waiter inserts settle delays between workflow steps. The delays are
// fixed, sized empirically to the remote operation they follow; nothing
// polls remote state. That is a known reliability tradeoff, acceptable
// for an unattended demo that is re-run wholesale on failure.
type Waiter struct {
	con   *console.Console
	sleep func(time.Duration)
}

func NewWaiter(con *console.Console) *Waiter {
	return &Waiter{con: con, sleep: time.Sleep}
}

// Wait logs the duration and suspends the calling goroutine. There is no
// cancellation: every wait runs to completion.
func (w *Waiter) Wait(seconds float64) {
	w.con.Wait(seconds)
	w.sleep(time.Duration(seconds * float64(time.Second)))
}
