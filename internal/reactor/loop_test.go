package reactor

import (
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatchRunsCallback(t *testing.T) {
	l := New()
	l.Run()
	defer l.Stop()

	done := make(chan struct{})
	if !l.Dispatch(func() { close(done) }) {
		t.Fatal("Dispatch() returned false on a running loop")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatched callback never ran")
	}
}

func TestDispatchAfterStop(t *testing.T) {
	l := New()
	l.Run()
	l.Stop()

	if l.Dispatch(func() { t.Error("callback ran after Stop") }) {
		t.Error("Dispatch() returned true on a stopped loop")
	}
}

func TestCallbacksNeverOverlap(t *testing.T) {
	l := New()
	l.Run()
	defer l.Stop()

	var inFlight int32
	var overlaps int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.dispatchWait(func() {
					if atomic.AddInt32(&inFlight, 1) != 1 {
						atomic.AddInt32(&overlaps, 1)
					}
					atomic.AddInt32(&inFlight, -1)
				})
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&overlaps); n != 0 {
		t.Errorf("%d callbacks ran concurrently; the loop must serialize them", n)
	}
}

func TestWatchConnDeliversData(t *testing.T) {
	l := New()
	l.Run()

	client, server := net.Pipe()
	defer client.Close()

	received := make(chan []byte, 4)
	errs := make(chan error, 1)
	l.WatchConn(server, 64, func(data []byte) {
		cp := make([]byte, len(data))
		copy(cp, data)
		received <- cp
	}, func(err error) {
		errs <- err
	})

	if _, err := client.Write([]byte("abc")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case data := <-received:
		if string(data) != "abc" {
			t.Errorf("data = %q, want abc", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("data never delivered")
	}

	// Closing the peer surfaces as a read error on the loop.
	client.Close()
	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatal("read error never delivered")
	}

	server.Close()
	l.Stop()
}

func TestWatchListenerDeliversAccepts(t *testing.T) {
	l := New()
	l.Run()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	accepted := make(chan net.Conn, 1)
	l.WatchListener(ln, func(conn net.Conn) {
		accepted <- conn
	}, func(err error) {})

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	select {
	case conn := <-accepted:
		conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("accept never delivered")
	}

	ln.Close()
	l.Stop()
}

func TestEveryFiresAndStops(t *testing.T) {
	l := New()
	l.Run()
	defer l.Stop()

	var fires int32
	timer := l.Every(10*time.Millisecond, func() {
		atomic.AddInt32(&fires, 1)
	})

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&fires) < 3 {
		select {
		case <-deadline:
			t.Fatal("timer did not fire 3 times")
		case <-time.After(5 * time.Millisecond):
		}
	}

	timer.Stop()
	settled := atomic.LoadInt32(&fires)
	time.Sleep(50 * time.Millisecond)
	// One firing may have been in flight when Stop returned.
	if after := atomic.LoadInt32(&fires); after > settled+1 {
		t.Errorf("timer fired %d times after Stop", after-settled)
	}
}

func TestTimerStopFromCallback(t *testing.T) {
	l := New()
	l.Run()
	defer l.Stop()

	var fires int32
	var timer *Timer
	ready := make(chan struct{})
	assigned := make(chan struct{})
	timer = l.Every(10*time.Millisecond, func() {
		<-assigned
		if atomic.AddInt32(&fires, 1) == 1 {
			timer.Stop()
			close(ready)
		}
	})
	close(assigned)

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&fires); n != 1 {
		t.Errorf("timer fired %d times, want 1 (stopped from its own callback)", n)
	}
}
