package mcpserver

import (
	"path/filepath"
	"sync/atomic"
	"time"
)

// Notification methods sent to clients when the index changes.
const (
	MethodNoteChanged      = "notifications/wiki/note_changed"
	MethodResourcesChanged = "notifications/resources/list_changed"
)

type noteEvent struct {
	kind string
	path string
}

// notifier forwards index changes to every connected client, followed by a
// throttled list-changed notification.
//
// A single internal loop owns the throttle timestamp; callers reach it
// through channels.
type notifier struct {
	send    func(method string, params map[string]any)
	listMin time.Duration

	eventCh chan noteEvent
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

func newNotifier(send func(method string, params map[string]any), throttle time.Duration) *notifier {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	n := &notifier{
		send:    send,
		listMin: throttle,
		eventCh: make(chan noteEvent, 256),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *notifier) run() {
	defer close(n.stopped)

	var lastList time.Time
	for {
		select {
		case <-n.stopCh:
			return
		case ev := <-n.eventCh:
			n.send(MethodNoteChanged, map[string]any{
				"kind": ev.kind,
				"path": filepath.ToSlash(ev.path),
			})
			now := time.Now()
			if now.Sub(lastList) >= n.listMin {
				lastList = now
				n.send(MethodResourcesChanged, nil)
			}
		}
	}
}

// publish queues a note change. It is a no-op once the notifier is closed.
func (n *notifier) publish(kind, path string) {
	if n.closed.Load() {
		return
	}
	select {
	case n.eventCh <- noteEvent{kind: kind, path: path}:
	case <-n.stopped:
	}
}

func (n *notifier) close() {
	if n.closed.CompareAndSwap(false, true) {
		close(n.stopCh)
	}
	<-n.stopped
}
