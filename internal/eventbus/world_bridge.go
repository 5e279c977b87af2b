package eventbus

import (
	"context"
	"time"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/world"
	"github.com/google/uuid"
)

// Типы событий, не совпадающие с world.EventType.
const (
	TypeAccessDenied = "access_denied"
)

// Приоритеты конвертов мира.
const (
	PriorityCell      = 1
	PriorityStructure = 3
	PriorityDenial    = 6
)

// DenialPayload - полезная нагрузка access_denied.
type DenialPayload struct {
	Actor uuid.UUID `json:"actor"`
	Owner uuid.UUID `json:"owner"`
	Mode  string    `json:"mode"`
	Error string    `json:"error"`
}

// Publisher переводит события мира и отказы доступа в конверты шины.
type Publisher struct {
	bus     EventBus
	source  string
	timeout time.Duration
	logger  *logging.Logger
}

// NewPublisher создаёт мост к шине.
func NewPublisher(bus EventBus, source string) *Publisher {
	if source == "" {
		source = "voxelforge"
	}
	return &Publisher{
		bus:     bus,
		source:  source,
		timeout: 100 * time.Millisecond,
		logger:  logging.GetComponentLogger("eventbus"),
	}
}

// OnWorldEvent публикует событие мира. Подходит как world.Listener.
func (p *Publisher) OnWorldEvent(ev world.Event) {
	prio := PriorityCell
	if ev.Type == world.EventStructureFormed || ev.Type == world.EventStructureUnformed {
		prio = PriorityStructure
	}
	p.publish(context.Background(), ev.Type.String(), prio, ev)
}

// OnDenial публикует отказ доступа. Подходит как security.DenialReporter.
func (p *Publisher) OnDenial(ctx context.Context, d security.Denial) {
	payload := DenialPayload{Actor: d.Actor, Owner: d.Owner, Mode: d.Mode.String()}
	if d.Err != nil {
		payload.Error = d.Err.Error()
	}
	p.publish(ctx, TypeAccessDenied, PriorityDenial, payload)
}

func (p *Publisher) publish(ctx context.Context, eventType string, prio int, payload any) {
	env, err := NewEnvelope(p.source, eventType, prio, payload)
	if err != nil {
		p.logger.Error("Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	// События публикуются под блокировкой мира: ждать шину дольше нельзя.
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.bus.Publish(ctx, env); err != nil {
		p.logger.Warn("Событие %s не опубликовано: %v", eventType, err)
	}
}

// Listener возвращает функцию для world.WithListener.
func (p *Publisher) Listener() world.Listener { return p.OnWorldEvent }

// Reporter возвращает функцию для security.WithReporter.
func (p *Publisher) Reporter() security.DenialReporter { return p.OnDenial }
