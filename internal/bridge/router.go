package bridge

import (
	"strings"
	"sync"
)

// Wildcard subscribes to every project.
const Wildcard = "*"

const (
	defaultSubscriberCapacity = 100
	defaultBacklogLimit       = 50
	defaultDedupeWindow       = 1024
)

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// Router fans pushed events out to per-project subscribers. Events for a
// project nobody watches yet are held in a bounded backlog; duplicate event
// IDs are dropped; a full subscriber loses its oldest event first.
type Router struct {
	mu           sync.RWMutex
	subscribers  map[string]map[*subscriber]struct{}
	backlog      map[string][]Event
	recentIDs    map[string]struct{}
	recentOrder  []string
	channelSize  int
	backlogLimit int
	dedupeWindow int
	logger       Logger
}

// Subscription represents an active project subscription.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Close terminates the subscription.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewRouter constructs a router with default buffer sizes.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		subscribers:  map[string]map[*subscriber]struct{}{},
		backlog:      map[string][]Event{},
		recentIDs:    map[string]struct{}{},
		recentOrder:  make([]string, 0, defaultDedupeWindow),
		channelSize:  defaultSubscriberCapacity,
		backlogLimit: defaultBacklogLimit,
		dedupeWindow: defaultDedupeWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RouterWithLogger injects a logger for drop messages.
func RouterWithLogger(logger Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// RouterWithSubscriberCapacity overrides the buffered channel size per subscriber.
func RouterWithSubscriberCapacity(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.channelSize = n
		}
	}
}

// RouterWithBacklogLimit overrides the per-project backlog size.
func RouterWithBacklogLimit(limit int) RouterOption {
	return func(r *Router) {
		if limit > 0 {
			r.backlogLimit = limit
		}
	}
}

// RouterWithDedupeWindow controls how many recent event IDs are retained.
func RouterWithDedupeWindow(size int) RouterOption {
	return func(r *Router) {
		if size > 0 {
			r.dedupeWindow = size
		}
	}
}

// Subscribe registers for events of one project, or every project with
// Wildcard. A project subscription first receives that project's backlog;
// a wildcard subscription drains every backlog.
func (r *Router) Subscribe(projectID string) Subscription {
	key := normalizeProject(projectID)
	sub := newSubscriber(r.channelSize, r.logger)
	var backlog []Event
	r.mu.Lock()
	if r.subscribers[key] == nil {
		r.subscribers[key] = map[*subscriber]struct{}{}
	}
	r.subscribers[key][sub] = struct{}{}
	if key == Wildcard {
		for project, queued := range r.backlog {
			backlog = append(backlog, queued...)
			delete(r.backlog, project)
		}
	} else if queued := r.backlog[key]; len(queued) > 0 {
		backlog = append(backlog, queued...)
		delete(r.backlog, key)
	}
	r.mu.Unlock()
	for _, event := range backlog {
		sub.deliver(event)
	}
	return Subscription{
		Events: sub.channel(),
		cancel: func() {
			r.removeSubscriber(key, sub)
		},
	}
}

// HandleEvent satisfies the EventProcessor interface.
func (r *Router) HandleEvent(event Event) error {
	r.Route(event)
	return nil
}

// Route delivers the event to the project's subscribers and every wildcard
// subscriber, or buffers it when there are none.
func (r *Router) Route(event Event) {
	if event.EventID != "" && r.isDuplicate(event.EventID) {
		return
	}
	key := normalizeProject(event.ProjectID)
	if key == "" {
		key = Wildcard
	}
	r.mu.RLock()
	subs := r.snapshotSubscribers(key)
	if key != Wildcard {
		subs = append(subs, r.snapshotSubscribers(Wildcard)...)
	}
	r.mu.RUnlock()
	if len(subs) == 0 {
		if key != Wildcard {
			r.bufferEvent(key, event)
		}
		return
	}
	for _, sub := range subs {
		sub.deliver(event)
	}
}

func (r *Router) snapshotSubscribers(key string) []*subscriber {
	live := r.subscribers[key]
	if len(live) == 0 {
		return nil
	}
	items := make([]*subscriber, 0, len(live))
	for sub := range live {
		items = append(items, sub)
	}
	return items
}

func (r *Router) removeSubscriber(key string, sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subs := r.subscribers[key]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(r.subscribers, key)
		}
	}
	sub.close()
}

func (r *Router) bufferEvent(key string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	queue := r.backlog[key]
	if len(queue) >= r.backlogLimit {
		queue = queue[1:]
		if r.logger != nil {
			r.logger.Printf("bridge: backlog drop for %s (limit %d)", key, r.backlogLimit)
		}
	}
	r.backlog[key] = append(queue, event)
}

func (r *Router) isDuplicate(eventID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recentIDs[eventID]; ok {
		return true
	}
	r.recentIDs[eventID] = struct{}{}
	r.recentOrder = append(r.recentOrder, eventID)
	if len(r.recentOrder) > r.dedupeWindow {
		oldest := r.recentOrder[0]
		r.recentOrder = r.recentOrder[1:]
		delete(r.recentIDs, oldest)
	}
	return false
}

// Project IDs are opaque, so only surrounding space is trimmed.
func normalizeProject(projectID string) string {
	return strings.TrimSpace(projectID)
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Event
	logger Logger
	closed bool
}

func newSubscriber(capacity int, logger Logger) *subscriber {
	if capacity <= 0 {
		capacity = defaultSubscriberCapacity
	}
	return &subscriber{
		ch:     make(chan Event, capacity),
		logger: logger,
	}
}

func (s *subscriber) channel() <-chan Event {
	return s.ch
}

// deliver holds the lock across the send so close cannot race it.
func (s *subscriber) deliver(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- event:
		return
	default:
	}
	var oldest Event
	select {
	case oldest = <-s.ch:
	default:
		// The reader drained the channel in between.
		s.ch <- event
		return
	}
	if shouldDropOldest(oldest, event) {
		s.logDrop(oldest, "queue overflow")
		s.ch <- event
		return
	}
	s.ch <- oldest
	s.logDrop(event, "queue overflow:incoming")
}

func (s *subscriber) logDrop(event Event, reason string) {
	if s.logger == nil {
		return
	}
	s.logger.Printf("bridge: dropped %s for %s (%s)", event.Type, event.ProjectID, reason)
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func shouldDropOldest(oldest, incoming Event) bool {
	oldestCritical := oldest.Type == TypeProjectRemoved
	incomingCritical := incoming.Type == TypeProjectRemoved
	switch {
	case oldestCritical && !incomingCritical:
		return false
	case !oldestCritical && incomingCritical:
		return true
	}
	if incoming.Type == TypeHeartbeat && oldest.Type != TypeHeartbeat {
		return false
	}
	return true
}
