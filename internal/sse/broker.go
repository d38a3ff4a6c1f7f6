// Package sse streams catalog change events to HTTP clients as
// Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/feattree/internal/catalog"
)

const (
	clientBuffer = 64
	historySize  = 128
	keepAlive    = 15 * time.Second
)

// Event is one SSE message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type message struct {
	id  string
	raw []byte
}

type subscribeReq struct {
	ch     chan []byte
	lastID string
}

// Broker fans events out to connected clients and keeps a short history
// so a reconnecting client can resume from its Last-Event-ID.
//
// One goroutine owns the client set, the history and the docs throttle;
// public methods reach it over channels.
type Broker struct {
	docsMin time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan catalog.ChangeEvent
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits at most one docs.updated event per
// docsThrottle.
func NewBroker(docsThrottle time.Duration) *Broker {
	if docsThrottle <= 0 {
		docsThrottle = 2 * time.Second
	}
	b := &Broker{
		docsMin:       docsThrottle,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan catalog.ChangeEvent, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.loop()
	return b
}

func encode(event Event) (message, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return message{}, err
	}
	id := uuid.NewString()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "id: %s\nevent: %s\ndata: %s\n\n", id, event.Type, payload)
	return message{id: id, raw: buf.Bytes()}, nil
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	history := make([]message, 0, historySize)
	var lastDocs time.Time

	send := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// Slow client; drop rather than stall the loop.
		}
	}
	emit := func(event Event) {
		msg, err := encode(event)
		if err != nil {
			return
		}
		if len(history) == historySize {
			history = append(history[:0], history[1:]...)
		}
		history = append(history, msg)
		for ch := range clients {
			send(ch, msg.raw)
		}
	}
	replay := func(req subscribeReq) {
		if req.lastID == "" {
			return
		}
		for i, msg := range history {
			if msg.id != req.lastID {
				continue
			}
			for _, missed := range history[i+1:] {
				send(req.ch, missed.raw)
			}
			return
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			replay(req)
			clients[req.ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			emit(event)

		case ev := <-b.changeCh:
			if ev.Kind != catalog.KindDocuments {
				emit(Event{Type: string(ev.Kind) + "." + string(ev.Op), Data: ev})
			}
			if now := time.Now(); now.Sub(lastDocs) >= b.docsMin {
				lastDocs = now
				emit(Event{Type: "docs.updated", Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client that only sees new events.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeFrom("")
}

// SubscribeFrom adds a client and first queues every retained event
// published after lastID. An unknown lastID replays nothing.
func (b *Broker) SubscribeFrom(lastID string) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- subscribeReq{ch: ch, lastID: lastID}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an arbitrary event to all clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishChange broadcasts a catalog change as "<kind>.<op>" followed by a
// throttled docs.updated. Documents events only produce the latter.
func (b *Broker) PublishChange(ev catalog.ChangeEvent) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- ev:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). It honours the
// Last-Event-ID header and writes a comment line while idle so proxies
// keep the connection open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeFrom(r.Header.Get("Last-Event-ID"))
	defer b.Unsubscribe(ch)

	idle := time.NewTicker(keepAlive)
	defer idle.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-idle.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
