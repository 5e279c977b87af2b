package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/annel0/voxelforge/internal/eventbus"
	"github.com/annel0/voxelforge/internal/logging"
)

// OutboundWebhook - подписка внешнего сервиса на события мира.
type OutboundWebhook struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	Secret       string     `json:"secret,omitempty"`
	Events       []string   `json:"events"` // Типы конвертов; "*" - все
	Active       bool       `json:"active"`
	Timeout      int        `json:"timeout"` // Таймаут в секундах
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
	FailureCount int        `json:"failure_count"`
}

func (w *OutboundWebhook) subscribed(eventType string) bool {
	for _, e := range w.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}

// OutboundWebhookManager пересылает конверты шины событий на webhook'и.
type OutboundWebhookManager struct {
	webhooks   map[uint64]*OutboundWebhook
	queue      chan *eventbus.Envelope
	mu         sync.RWMutex
	nextID     uint64
	httpClient *http.Client
	retryDelay time.Duration
	sub        eventbus.Subscription
	logger     *logging.Logger
	wg         sync.WaitGroup
	closeOnce  sync.Once
	closed     bool
}

// NewOutboundWebhookManager создает менеджер и запускает воркер отправки.
func NewOutboundWebhookManager(logger *logging.Logger) *OutboundWebhookManager {
	if logger == nil {
		logger = logging.GetAPILogger()
	}
	m := &OutboundWebhookManager{
		webhooks:   make(map[uint64]*OutboundWebhook),
		queue:      make(chan *eventbus.Envelope, 1000),
		nextID:     1,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryDelay: time.Second,
		logger:     logger,
	}
	m.wg.Add(1)
	go m.worker()
	return m
}

// Attach подписывает менеджер на все события шины.
func (m *OutboundWebhookManager) Attach(ctx context.Context, bus eventbus.EventBus) error {
	sub, err := bus.Subscribe(ctx, eventbus.Filter{}, func(_ context.Context, ev *eventbus.Envelope) {
		m.Enqueue(ev)
	})
	if err != nil {
		return err
	}
	m.sub = sub
	return nil
}

// Enqueue ставит конверт в очередь отправки. При переполнении событие теряется.
func (m *OutboundWebhookManager) Enqueue(ev *eventbus.Envelope) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- ev:
	default:
		m.logger.Warn("⚠️ Очередь webhook'ов переполнена, событие %s пропущено", ev.EventType)
	}
}

// Close отписывается от шины и дожидается отправки очереди.
func (m *OutboundWebhookManager) Close() {
	m.closeOnce.Do(func() {
		if m.sub != nil {
			m.sub.Unsubscribe()
		}
		m.mu.Lock()
		m.closed = true
		close(m.queue)
		m.mu.Unlock()
		m.wg.Wait()
	})
}

// AddWebhook добавляет новый webhook
func (m *OutboundWebhookManager) AddWebhook(webhook OutboundWebhook) *OutboundWebhook {
	m.mu.Lock()
	defer m.mu.Unlock()

	webhook.ID = m.nextID
	m.nextID++
	webhook.CreatedAt = time.Now()
	webhook.Active = true
	if webhook.Timeout == 0 {
		webhook.Timeout = 30
	}
	if webhook.RetryCount == 0 {
		webhook.RetryCount = 3
	}

	m.webhooks[webhook.ID] = &webhook
	cp := webhook
	return &cp
}

// GetWebhooks возвращает копии webhook'ов по возрастанию ID
func (m *OutboundWebhookManager) GetWebhooks() []OutboundWebhook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]OutboundWebhook, 0, len(m.webhooks))
	for _, w := range m.webhooks {
		list = append(list, *w)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// GetWebhook возвращает копию webhook'а по ID
func (m *OutboundWebhookManager) GetWebhook(id uint64) (OutboundWebhook, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.webhooks[id]
	if !ok {
		return OutboundWebhook{}, false
	}
	return *w, true
}

// UpdateWebhook обновляет непустые поля webhook'а
func (m *OutboundWebhookManager) UpdateWebhook(id uint64, updates OutboundWebhook) (OutboundWebhook, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.webhooks[id]
	if !ok {
		return OutboundWebhook{}, false
	}
	if updates.Name != "" {
		w.Name = updates.Name
	}
	if updates.URL != "" {
		w.URL = updates.URL
	}
	if updates.Secret != "" {
		w.Secret = updates.Secret
	}
	if len(updates.Events) > 0 {
		w.Events = updates.Events
	}
	if updates.Timeout > 0 {
		w.Timeout = updates.Timeout
	}
	if updates.RetryCount > 0 {
		w.RetryCount = updates.RetryCount
	}
	w.Active = updates.Active
	return *w, true
}

// DeleteWebhook удаляет webhook
func (m *OutboundWebhookManager) DeleteWebhook(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.webhooks[id]; !ok {
		return false
	}
	delete(m.webhooks, id)
	return true
}

func (m *OutboundWebhookManager) worker() {
	defer m.wg.Done()
	for ev := range m.queue {
		m.mu.RLock()
		targets := make([]OutboundWebhook, 0)
		for _, w := range m.webhooks {
			if w.Active && w.subscribed(ev.EventType) {
				targets = append(targets, *w)
			}
		}
		m.mu.RUnlock()

		var wg sync.WaitGroup
		for _, w := range targets {
			wg.Add(1)
			go func(w OutboundWebhook) {
				defer wg.Done()
				m.deliver(w, ev)
			}(w)
		}
		wg.Wait()
	}
}

// deliver отправляет конверт одному webhook'у с повторами.
func (m *OutboundWebhookManager) deliver(w OutboundWebhook, ev *eventbus.Envelope) {
	body, err := json.Marshal(ev)
	if err != nil {
		m.logger.Error("❌ Ошибка маршалинга события для webhook %s: %v", w.Name, err)
		return
	}

	success := false
	for attempt := 0; attempt <= w.RetryCount && !success; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * m.retryDelay)
		}
		success = m.post(w, ev, body, attempt)
	}

	m.mu.Lock()
	if stored, ok := m.webhooks[w.ID]; ok {
		now := time.Now()
		stored.LastUsed = &now
		if !success {
			stored.FailureCount++
		}
	}
	m.mu.Unlock()
}

func (m *OutboundWebhookManager) post(w OutboundWebhook, ev *eventbus.Envelope, body []byte, attempt int) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(w.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		m.logger.Error("❌ Ошибка создания запроса для webhook %s: %v", w.Name, err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "voxelforge/1.0")
	req.Header.Set("X-Event-Type", ev.EventType)
	req.Header.Set("X-Event-ID", ev.ID)
	if w.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Signature(body, w.Secret))
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Warn("⚠️ Попытка %d/%d для webhook %s: %v", attempt+1, w.RetryCount+1, w.Name, err)
		return false
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Warn("⚠️ Webhook %s вернул статус %d на попытке %d", w.Name, resp.StatusCode, attempt+1)
		return false
	}
	m.logger.Debug("✅ Событие %s отправлено в webhook %s", ev.EventType, w.Name)
	return true
}

// Signature возвращает HMAC-SHA256 подпись тела в формате "sha256=<hex>".
func Signature(data []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
