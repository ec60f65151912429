package reactor

import (
	"net"
	"sync"
	"time"
)

// Loop is a single-dispatch event loop: every callback registered through it
// runs on the one loop goroutine, so callback code never needs locking
// against other callbacks. Reader goroutines feed network events into the
// loop and block until the loop has handled them, which keeps their read
// buffers safe to reuse.
type Loop struct {
	events   chan func()
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup // watcher and timer goroutines
	loopWG   sync.WaitGroup // the loop goroutine itself
}

// New creates a stopped loop. Call Run before dispatching.
func New() *Loop {
	return &Loop{
		events: make(chan func(), 64),
		quit:   make(chan struct{}),
	}
}

// Run starts the loop goroutine. It returns immediately.
func (l *Loop) Run() {
	l.loopWG.Add(1)
	go func() {
		defer l.loopWG.Done()
		for {
			select {
			case fn := <-l.events:
				fn()
			case <-l.quit:
				return
			}
		}
	}()
}

// Stop shuts the loop down and waits for every watcher, timer and the loop
// goroutine to exit. Watchers blocked in a network read only exit once their
// connection or listener is closed, so close those first.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
	})
	l.wg.Wait()
	l.loopWG.Wait()
}

// Dispatch queues fn to run on the loop goroutine. It returns false when the
// loop has been stopped and fn will not run.
func (l *Loop) Dispatch(fn func()) bool {
	// A buffered send would otherwise race the closed quit channel and
	// could enqueue fn on a loop that is already gone.
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// dispatchWait runs fn on the loop goroutine and blocks until it has
// returned. False means the loop stopped before fn could complete.
func (l *Loop) dispatchWait(fn func()) bool {
	done := make(chan struct{})
	if !l.Dispatch(func() {
		fn()
		close(done)
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-l.quit:
		return false
	}
}

// WatchListener accepts connections from ln and delivers each one to
// onAccept on the loop goroutine. The first accept error ends the watch and
// is delivered to onError, unless the loop is already stopping.
func (l *Loop) WatchListener(ln net.Listener, onAccept func(net.Conn), onError func(error)) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-l.quit:
					return
				default:
				}
				l.Dispatch(func() { onError(err) })
				return
			}
			if !l.dispatchWait(func() { onAccept(conn) }) {
				_ = conn.Close()
				return
			}
		}
	}()
}

// WatchConn reads from conn into a buffer of bufSize bytes and delivers each
// chunk to onData on the loop goroutine. The buffer is reused between reads;
// onData must copy anything it keeps. EOF and read errors end the watch and
// are delivered to onError, unless the loop is already stopping.
func (l *Loop) WatchConn(conn net.Conn, bufSize int, onData func([]byte), onError func(error)) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		buf := make([]byte, bufSize)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				if !l.dispatchWait(func() { onData(buf[:n]) }) {
					return
				}
			}
			if err != nil {
				select {
				case <-l.quit:
					return
				default:
				}
				l.Dispatch(func() { onError(err) })
				return
			}
		}
	}()
}

// Timer is a periodic callback registration. Stop is safe to call from any
// goroutine, including from inside the callback itself.
type Timer struct {
	stop chan struct{}
	once sync.Once
}

// Stop cancels the timer. The callback will not fire again once Stop
// returns, except for a firing already in flight.
func (t *Timer) Stop() {
	t.once.Do(func() {
		close(t.stop)
	})
}

// Every schedules fn to run on the loop goroutine every interval until the
// returned timer is stopped or the loop shuts down.
func (l *Loop) Every(interval time.Duration, fn func()) *Timer {
	t := &Timer{stop: make(chan struct{})}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case <-t.stop:
					return
				default:
				}
				if !l.dispatchWait(fn) {
					return
				}
			case <-t.stop:
				return
			case <-l.quit:
				return
			}
		}
	}()
	return t
}
