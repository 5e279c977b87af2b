package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/voxelforge/internal/logging"
	nats "github.com/nats-io/nats.go"
)

// subjectPrefix - конверты публикуются в voxelforge.events.<event_type>.
const subjectPrefix = "voxelforge.events."

// JetStreamBus реализует EventBus поверх NATS JetStream: события мира
// переживают перезапуск узла и видны всем узлам кластера.
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string
	logger *logging.Logger

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к NATS и создаёт стрим, если его нет.
// retention ограничивает возраст хранимых событий.
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = "VOXELFORGE"
	}
	logger := logging.GetComponentLogger("eventbus")

	nc, err := nats.Connect(url,
		nats.Name("voxelforge"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS: соединение потеряно: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS: переподключено к %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream(nats.PublishAsyncMaxPending(4096))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStream(js, stream, retention); err != nil {
		nc.Close()
		return nil, err
	}

	logger.Info("📡 JetStream: подключено к %s, стрим %s", url, stream)
	return &JetStreamBus{nc: nc, js: js, stream: stream, logger: logger}, nil
}

func ensureStream(js nats.JetStreamContext, stream string, retention time.Duration) error {
	_, err := js.StreamInfo(stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info: %w", err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:       stream,
		Subjects:   []string{subjectPrefix + "*"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     retention,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("add stream: %w", err)
	}
	return nil
}

// Publish отправляет конверт асинхронно. ID конверта служит Nats-Msg-Id,
// поэтому повторная отправка того же конверта не дублируется в стриме.
// Неподтверждённые сервером конверты учитываются как dropped.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	future, err := jb.js.PublishAsync(subjectPrefix+ev.EventType, data, nats.MsgId(ev.ID))
	if err != nil {
		jb.dropped.Add(1)
		return err
	}
	jb.published.Add(1)
	go func() {
		select {
		case <-future.Ok():
		case err := <-future.Err():
			jb.dropped.Add(1)
			jb.logger.Warn("JetStream: событие %s не подтверждено: %v", ev.ID, err)
		}
	}()
	return nil
}

// Subscribe создаёт упорядоченный эфемерный consumer, получающий только
// новые события. Подписка снимается при Unsubscribe или отмене ctx.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := subjectPrefix + "*"
	if len(f.Types) == 1 {
		subj = subjectPrefix + f.Types[0]
	}

	sub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			jb.logger.Warn("JetStream: повреждённый конверт в %s: %v", msg.Subject, err)
			return
		}
		if !matchFilter(&ev, f) {
			return
		}
		h(ctx, &ev)
		jb.consumed.Add(1)
	}, nats.OrderedConsumer(), nats.DeliverNew())
	if err != nil {
		return nil, err
	}

	js := &jetSub{s: sub, stop: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			js.Unsubscribe()
		case <-js.stop:
		}
	}()
	return js, nil
}

type jetSub struct {
	s    *nats.Subscription
	stop chan struct{}
	done atomic.Bool
}

func (j *jetSub) Unsubscribe() {
	if j.done.Swap(true) {
		return
	}
	close(j.stop)
	_ = j.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
		InFlight:  jb.js.PublishAsyncPending(),
	}
}

// Close дожидается подтверждения отправленных событий и закрывает соединение.
func (jb *JetStreamBus) Close() error {
	select {
	case <-jb.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		jb.logger.Warn("JetStream: не все события подтверждены до закрытия")
	}
	return jb.nc.Drain()
}
