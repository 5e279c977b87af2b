package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/voxelforge/internal/auth"
	"github.com/annel0/voxelforge/internal/eventbus"
	"github.com/annel0/voxelforge/internal/world"
	"github.com/google/uuid"
)

const (
	defaultNATSURL = "nats://localhost:4222"
	timeFormat     = "15:04:05"
)

func main() {
	var (
		natsURL    = flag.String("nats", defaultNATSURL, "NATS server URL")
		stream     = flag.String("stream", "VOXELFORGE", "JetStream stream name")
		command    = flag.String("cmd", "tail", "Command: tail, stats, token, secret")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		sources    = flag.String("sources", "", "Event sources filter (comma-separated)")
		limit      = flag.Int("limit", 100, "Maximum number of events (0 - unlimited)")
		window     = flag.Duration("window", 30*time.Second, "Collection window for stats")
		actor      = flag.String("actor", "", "Player UUID for token (empty - new)")
		operator   = flag.Bool("op", false, "Issue operator token")
		secret     = flag.String("secret", os.Getenv("VF_JWT_SECRET"), "JWT secret (base64)")
	)
	flag.Parse()

	filter := eventbus.Filter{Types: parseStringList(*eventTypes), Sources: parseStringList(*sources)}

	switch *command {
	case "tail":
		if err := tailEvents(*natsURL, *stream, filter, *limit); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "stats":
		if err := showStats(*natsURL, *stream, filter, *window); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	case "token":
		token, id, err := issueToken(*secret, *actor, *operator)
		if err != nil {
			log.Fatalf("❌ Token failed: %v", err)
		}
		fmt.Printf("# actor %s\n%s\n", id, token)

	case "secret":
		s, err := auth.GenerateSecureSecret()
		if err != nil {
			log.Fatalf("❌ Secret failed: %v", err)
		}
		fmt.Println(s)

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats, token, secret")
		os.Exit(1)
	}
}

func connect(url, stream string) (eventbus.EventBus, error) {
	// retention не важна: стрим обычно уже создан сервером
	return eventbus.NewJetStreamBus(url, stream, 24*time.Hour)
}

// tailEvents выводит события до лимита или Ctrl+C.
func tailEvents(url, stream string, f eventbus.Filter, limit int) error {
	bus, err := connect(url, stream)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Printf("🎬 Tailing events (limit: %d)\n", limit)

	var (
		mu    sync.Mutex
		count int
	)
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		if limit > 0 && count >= limit {
			return
		}
		fmt.Println(formatEvent(ev))
		count++
		if limit > 0 && count >= limit {
			cancel()
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	mu.Lock()
	fmt.Printf("\n📊 Total events: %d\n", count)
	mu.Unlock()
	return nil
}

// showStats считает события по типам за окно времени.
func showStats(url, stream string, f eventbus.Filter, window time.Duration) error {
	bus, err := connect(url, stream)
	if err != nil {
		return err
	}
	defer bus.Close()

	fmt.Printf("📊 Collecting events for %s\n", window)

	ctx, cancel := context.WithTimeout(context.Background(), window)
	defer cancel()

	st := newStats()
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *eventbus.Envelope) {
		st.add(ev)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	<-ctx.Done()

	fmt.Print(st.String())
	return nil
}

// issueToken выпускает JWT для игрока.
func issueToken(secret, actor string, op bool) (string, uuid.UUID, error) {
	if secret == "" {
		return "", uuid.Nil, fmt.Errorf("secret is required (-secret or VF_JWT_SECRET)")
	}
	a, err := auth.NewAuthenticator(secret)
	if err != nil {
		return "", uuid.Nil, err
	}
	id := uuid.New()
	if actor != "" {
		if id, err = uuid.Parse(actor); err != nil {
			return "", uuid.Nil, fmt.Errorf("invalid actor: %w", err)
		}
	}
	token, err := a.Issue(id, op)
	return token, id, err
}

// formatEvent выводит событие в читаемом формате
func formatEvent(ev *eventbus.Envelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s [%s] %s", ev.Timestamp.Format(timeFormat), ev.Source, ev.EventType, ev.ID)

	// Добавляем детали в зависимости от типа события
	switch ev.EventType {
	case eventbus.TypeAccessDenied:
		var d eventbus.DenialPayload
		if ev.Decode(&d) == nil {
			fmt.Fprintf(&b, "\n  Actor: %s Owner: %s Mode: %s", d.Actor, d.Owner, d.Mode)
		}
	default:
		var e world.Event
		if ev.Decode(&e) != nil {
			break
		}
		fmt.Fprintf(&b, "\n  Pos: (%d,%d,%d)", e.Pos[0], e.Pos[1], e.Pos[2])
		if e.Tag != "" {
			fmt.Fprintf(&b, " Block: %s", e.Tag)
		}
		if e.Structure != "" {
			fmt.Fprintf(&b, " Structure: %s", e.Structure)
		}
		if e.Reason != "" {
			fmt.Fprintf(&b, " Reason: %s", e.Reason)
		}
		if e.Actor != uuid.Nil {
			fmt.Fprintf(&b, " Player: %s", e.Actor)
		}
	}
	return b.String()
}

type stats struct {
	mu     sync.Mutex
	byType map[string]int
	total  int
}

func newStats() *stats {
	return &stats{byType: make(map[string]int)}
}

func (s *stats) add(ev *eventbus.Envelope) {
	s.mu.Lock()
	s.byType[ev.EventType]++
	s.total++
	s.mu.Unlock()
}

func (s *stats) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]string, 0, len(s.byType))
	for t := range s.byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if s.byType[types[i]] != s.byType[types[j]] {
			return s.byType[types[i]] > s.byType[types[j]]
		}
		return types[i] < types[j]
	})

	var b strings.Builder
	for _, t := range types {
		fmt.Fprintf(&b, "  %-20s %d\n", t, s.byType[t])
	}
	fmt.Fprintf(&b, "  %-20s %d\n", "total", s.total)
	return b.String()
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
