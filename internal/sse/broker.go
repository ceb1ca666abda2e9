// Package sse streams Larder change events to browsers as Server-Sent Events.
//
// Recipe and catalog changes reach every subscriber. Relation changes
// (follow, favorite, cart) reach only the user who owns the edge.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/starford/larder/internal/models"
)

// Message is one event on the stream. To restricts delivery to a single
// user; zero means every subscriber.
type Message struct {
	Name string
	Data any
	To   int64

	// bumpsFeed asks the loop for a throttled feed.updated after delivery.
	bumpsFeed bool
}

func (m Message) frame() ([]byte, error) {
	data, err := json.Marshal(m.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", m.Name, data), nil
}

type subscriber struct {
	userID int64
	out    chan []byte
}

// Option configures a Broker.
type Option func(*Broker)

// WithFeedThrottle sets the minimum gap between two feed.updated events.
func WithFeedThrottle(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.feedEvery = d
		}
	}
}

// WithViewer tells ServeHTTP how to identify the user behind a request.
// Without it every stream is anonymous and sees broadcasts only.
func WithViewer(fn func(*http.Request) int64) Option {
	return func(b *Broker) { b.viewer = fn }
}

// Broker fans messages out to subscribers. A single loop goroutine owns
// the subscriber set and the feed timestamp.
type Broker struct {
	feedEvery time.Duration
	viewer    func(*http.Request) int64
	buffer    int

	join  chan *subscriber
	leave chan *subscriber
	send  chan Message
	count chan chan int

	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

// NewBroker starts a broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		feedEvery: 2 * time.Second,
		viewer:    func(*http.Request) int64 { return 0 },
		buffer:    64,
		join:      make(chan *subscriber),
		leave:     make(chan *subscriber),
		send:      make(chan Message, 256),
		count:     make(chan chan int),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.exited)

	subs := make(map[*subscriber]struct{})
	var lastFeed time.Time

	for {
		select {
		case <-b.done:
			for s := range subs {
				close(s.out)
			}
			return

		case s := <-b.join:
			subs[s] = struct{}{}

		case s := <-b.leave:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.out)
			}

		case m := <-b.send:
			deliver(subs, m)
			if m.bumpsFeed && time.Since(lastFeed) >= b.feedEvery {
				lastFeed = time.Now()
				deliver(subs, Message{Name: "feed.updated", Data: struct{}{}})
			}

		case reply := <-b.count:
			reply <- len(subs)
		}
	}
}

// deliver never blocks: a subscriber whose buffer is full misses m.
func deliver(subs map[*subscriber]struct{}, m Message) {
	frame, err := m.frame()
	if err != nil {
		slog.Warn("sse: encode event", slog.String("event", m.Name), slog.String("error", err.Error()))
		return
	}
	for s := range subs {
		if m.To != 0 && s.userID != m.To {
			continue
		}
		select {
		case s.out <- frame:
		default:
		}
	}
}

// Close stops the loop and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	b.stopOnce.Do(func() { close(b.done) })
	<-b.exited
}

// Subscribe registers a stream for userID (0 for anonymous) and returns
// its frames plus a function that unregisters it. On a closed broker the
// channel comes back already closed.
func (b *Broker) Subscribe(userID int64) (<-chan []byte, func()) {
	s := &subscriber{userID: userID, out: make(chan []byte, b.buffer)}
	select {
	case b.join <- s:
	case <-b.done:
		close(s.out)
		return s.out, func() {}
	}
	return s.out, func() {
		select {
		case b.leave <- s:
		case <-b.done:
		}
	}
}

// Subscribers returns the number of open streams.
func (b *Broker) Subscribers() int {
	reply := make(chan int, 1)
	select {
	case b.count <- reply:
		return <-reply
	case <-b.done:
		return 0
	}
}

// Publish queues m. Messages published after Close are dropped.
func (b *Broker) Publish(m Message) {
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.send <- m:
	case <-b.done:
	}
}

// RecipeChanged broadcasts recipe.<kind> for recipe id and bumps the feed.
// kind is created, updated or deleted; anything else is ignored.
func (b *Broker) RecipeChanged(kind string, id int64) {
	switch kind {
	case "created", "updated", "deleted":
	default:
		return
	}
	b.Publish(Message{Name: "recipe." + kind, Data: map[string]int64{"id": id}, bumpsFeed: true})
}

// RelationChanged sends <kind>.<action> to actorID only.
func (b *Broker) RelationChanged(kind models.RelationKind, action string, actorID, targetID int64) {
	if actorID == 0 {
		return
	}
	b.Publish(Message{
		Name: string(kind) + "." + action,
		Data: map[string]int64{"target": targetID},
		To:   actorID,
	})
}

// CatalogReloaded broadcasts catalog.updated.
func (b *Broker) CatalogReloaded() {
	b.Publish(Message{Name: "catalog.updated", Data: struct{}{}})
}

// ServeHTTP streams events to the caller until the request ends or the
// broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	frames, leave := b.Subscribe(b.viewer(r))
	defer leave()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, open := <-frames:
			if !open {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
