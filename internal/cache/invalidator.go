package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// DefaultInvalidationSubject - субъект NATS для сброса кэша доверия.
const DefaultInvalidationSubject = "voxelforge.trust.invalidate"

// ErrAlreadySubscribed - повторная подписка на один invalidator.
var ErrAlreadySubscribed = errors.New("cache: invalidator already subscribed")

// Invalidator рассылает сброс записей владельца между узлами.
type Invalidator interface {
	Publish(ctx context.Context, owner uuid.UUID) error
	Subscribe(ctx context.Context, handler func(owner uuid.UUID)) error
	Close() error
}

// invalidation - тело сообщения о смене доверия владельца.
type invalidation struct {
	Owner  uuid.UUID `json:"owner"`
	Node   string    `json:"node"`
	SentAt time.Time `json:"sent_at"`
}

// InvalidatorStats - счётчики NATSInvalidator.
type InvalidatorStats struct {
	Sent      uint64
	Applied   uint64
	Skipped   uint64 // собственные сообщения узла
	Malformed uint64
	Connected bool
}

// NATSInvalidator реализует Invalidator поверх core NATS.
// Сообщения, отправленные этим же узлом, не доставляются обработчику.
type NATSInvalidator struct {
	nc      *nats.Conn
	subject string
	node    string
	logger  *logging.Logger

	mu  sync.Mutex
	sub *nats.Subscription

	sent, applied, skipped, malformed atomic.Uint64
}

// NewNATSInvalidator подключается к NATS. Пустой subject заменяется на
// DefaultInvalidationSubject, пустой node - на случайный UUID.
func NewNATSInvalidator(url, subject, node string) (*NATSInvalidator, error) {
	if subject == "" {
		subject = DefaultInvalidationSubject
	}
	if node == "" {
		node = uuid.NewString()
	}
	logger := logging.GetComponentLogger("cache")

	nc, err := nats.Connect(url,
		nats.Name("voxelforge-trust/"+node),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Инвалидация: NATS отключён: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("Инвалидация: NATS снова доступен (%s)", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("invalidator: nats connect: %w", err)
	}

	logger.Info("🔁 Инвалидация доверия: %s, субъект %s, узел %s", url, subject, node)
	return &NATSInvalidator{nc: nc, subject: subject, node: node, logger: logger}, nil
}

// Publish сообщает остальным узлам, что доверие владельца изменилось.
func (n *NATSInvalidator) Publish(ctx context.Context, owner uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(invalidation{Owner: owner, Node: n.node, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("invalidator: publish %s: %w", owner, err)
	}
	n.sent.Add(1)
	return nil
}

// Subscribe вызывает handler на сообщения других узлов. Подписка
// снимается при отмене ctx или Close.
func (n *NATSInvalidator) Subscribe(ctx context.Context, handler func(owner uuid.UUID)) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sub != nil {
		return ErrAlreadySubscribed
	}

	sub, err := n.nc.Subscribe(n.subject, func(msg *nats.Msg) {
		var inv invalidation
		if err := json.Unmarshal(msg.Data, &inv); err != nil {
			n.malformed.Add(1)
			n.logger.Warn("Инвалидация: повреждённое сообщение: %v", err)
			return
		}
		if inv.Node == n.node {
			n.skipped.Add(1)
			return
		}
		n.applied.Add(1)
		handler(inv.Owner)
	})
	if err != nil {
		return fmt.Errorf("invalidator: subscribe: %w", err)
	}
	n.sub = sub

	go func() {
		<-ctx.Done()
		n.unsubscribe()
	}()
	return nil
}

func (n *NATSInvalidator) unsubscribe() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sub == nil {
		return
	}
	if err := n.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		n.logger.Warn("Инвалидация: отписка: %v", err)
	}
	n.sub = nil
}

// Close снимает подписку и закрывает соединение. Повторный вызов безопасен.
func (n *NATSInvalidator) Close() error {
	n.unsubscribe()
	n.nc.Close()
	return nil
}

// Stats возвращает счётчики.
func (n *NATSInvalidator) Stats() InvalidatorStats {
	return InvalidatorStats{
		Sent:      n.sent.Load(),
		Applied:   n.applied.Load(),
		Skipped:   n.skipped.Load(),
		Malformed: n.malformed.Load(),
		Connected: n.nc.IsConnected(),
	}
}
