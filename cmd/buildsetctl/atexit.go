package main

import (
	"sync"
	"sync/atomic"
)

// atExit collects cleanup functions that main registers (such as ending the
// terminal watcher's status block with a newline) so main can run them once,
// in registration order, before exiting.
var atExit struct {
	sync.Mutex
	fns    []func() error
	closed uint32
}

func registerAtExit(fn func() error) {
	if atomic.LoadUint32(&atExit.closed) != 0 {
		panic("BUG: registerAtExit must not be called from an atExit func")
	}
	atExit.Lock()
	defer atExit.Unlock()
	atExit.fns = append(atExit.fns, fn)
}

func runAtExit() error {
	atomic.StoreUint32(&atExit.closed, 1)
	for _, fn := range atExit.fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
