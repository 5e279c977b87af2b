package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/google/uuid"
)

// ErrClosed - шина закрыта.
var ErrClosed = errors.New("eventbus: closed")

// Envelope описывает универсальный контейнер события.
// Все поля фиксированы для версиирования и трассировки.
type Envelope struct {
	ID            string            `json:"id"`                       // Глобально уникальный идентификатор (UUID).
	Timestamp     time.Time         `json:"timestamp"`                // Время создания события (UTC).
	Source        string            `json:"source"`                   // Имя сервиса-источника.
	EventType     string            `json:"event_type"`               // Тип события (cell_placed, access_denied…).
	Version       int               `json:"version"`                  // Схема полезной нагрузки.
	CorrelationID string            `json:"correlation_id,omitempty"` // Для связывания цепочек.
	Priority      int               `json:"priority"`                 // 0=Low … 9=Critical (для backpressure).
	Payload       []byte            `json:"payload"`                  // JSON полезной нагрузки.
	Metadata      map[string]string `json:"metadata,omitempty"`       // Произвольные метаданные.
}

// NewEnvelope создаёт конверт с JSON-нагрузкой.
func NewEnvelope(source, eventType string, priority int, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  priority,
		Payload:   data,
	}, nil
}

// Decode разбирает нагрузку конверта.
func (e *Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types       []string // Если пусто — все типы.
	Sources     []string // Если пусто — все источники.
	MinPriority int      // Конверты ниже порога пропускаются.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий: в памяти или JetStream.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

//================ In-Memory implementation =================//

// DropBelow - по умолчанию при полном буфере теряются конверты с
// приоритетом ниже этого значения; остальные ждут места.
const DropBelow = 5

// MemoryOption настраивает шину в памяти.
type MemoryOption func(*memoryBus)

// WithDropBelow задаёт порог приоритета, ниже которого конверты теряются
// при полном буфере.
func WithDropBelow(p int) MemoryOption {
	return func(mb *memoryBus) { mb.dropBelow = p }
}

// WithLogger задаёт логгер шины.
func WithLogger(l *logging.Logger) MemoryOption {
	return func(mb *memoryBus) { mb.logger = l }
}

type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int

	buffer    chan *Envelope
	dropBelow int
	logger    *logging.Logger
	done      chan struct{}

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64

	// closeMu держит Close, пока Publish пишет в buffer.
	closeMu sync.RWMutex
	closed  bool
}

type subscriber struct {
	id      int
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создаёт шину в памяти процесса с буфером capacity.
// Подписчики вызываются по очереди одной горутиной в порядке подписки.
func NewMemoryBus(capacity int, opts ...MemoryOption) EventBus {
	mb := &memoryBus{
		subscribers: make(map[int]*subscriber),
		buffer:      make(chan *Envelope, capacity),
		dropBelow:   DropBelow,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(mb)
	}
	if mb.logger == nil {
		mb.logger = logging.GetComponentLogger("eventbus")
	}
	go mb.dispatchLoop()
	return mb
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.closeMu.RLock()
	defer mb.closeMu.RUnlock()
	if mb.closed {
		return ErrClosed
	}

	select {
	case mb.buffer <- ev:
		mb.published.Add(1)
		return nil
	default:
	}
	if ev.Priority < mb.dropBelow {
		mb.dropped.Add(1)
		return nil
	}
	select {
	case mb.buffer <- ev:
		mb.published.Add(1)
		return nil
	case <-ctx.Done():
		mb.dropped.Add(1)
		return ctx.Err()
	}
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	mb.subscribers[id] = &subscriber{id: id, filter: f, handler: h, ctx: cctx, cancel: cancel}
	return &memSub{bus: mb, id: id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	return Stats{
		Published: mb.published.Load(),
		Consumed:  mb.consumed.Load(),
		Dropped:   mb.dropped.Load(),
		InFlight:  len(mb.buffer),
	}
}

// Close перестаёт принимать события и дожидается доставки принятых.
func (mb *memoryBus) Close() error {
	mb.closeMu.Lock()
	if !mb.closed {
		mb.closed = true
		close(mb.buffer)
	}
	mb.closeMu.Unlock()
	<-mb.done
	return nil
}

// snapshot возвращает подписчиков в порядке подписки.
func (mb *memoryBus) snapshot() []*subscriber {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	subs := make([]*subscriber, 0, len(mb.subscribers))
	for _, sub := range mb.subscribers {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	return subs
}

func (mb *memoryBus) dispatchLoop() {
	defer close(mb.done)
	for ev := range mb.buffer {
		for _, sub := range mb.snapshot() {
			if sub.ctx.Err() != nil || !matchFilter(ev, sub.filter) {
				continue
			}
			mb.deliver(sub, ev)
		}
	}
}

// deliver вызывает обработчик; паника подписчика не останавливает шину.
func (mb *memoryBus) deliver(sub *subscriber, ev *Envelope) {
	defer func() {
		if r := recover(); r != nil {
			mb.logger.Error("Паника подписчика %d на %s: %v", sub.id, ev.EventType, r)
		}
	}()
	sub.handler(sub.ctx, ev)
	mb.consumed.Add(1)
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return ev.Priority >= f.MinPriority && match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus  *memoryBus
	id   int
	once sync.Once
}

func (s *memSub) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if sub, ok := s.bus.subscribers[s.id]; ok {
			sub.cancel()
			delete(s.bus.subscribers, s.id)
		}
	})
}
