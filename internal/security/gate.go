package security

import (
	"context"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/google/uuid"
)

// Denial - сведения об отказе, передаваемые наблюдателю.
type Denial struct {
	Actor uuid.UUID
	Owner uuid.UUID
	Mode  Mode
	Err   error
}

// DenialReporter получает каждый отказ (метрики, шина событий).
type DenialReporter func(ctx context.Context, d Denial)

// Gate - точка проверки доступа для всех изменяющих действий игрока.
type Gate struct {
	trust     TrustStore
	operators map[uuid.UUID]struct{}
	reporters []DenialReporter
	logger    *logging.Logger
}

// GateOption настраивает Gate.
type GateOption func(*Gate)

// WithOperators задаёт операторов, которые проходят любую проверку.
func WithOperators(ids ...uuid.UUID) GateOption {
	return func(g *Gate) {
		for _, id := range ids {
			g.operators[id] = struct{}{}
		}
	}
}

// WithReporter добавляет наблюдателя отказов.
func WithReporter(r DenialReporter) GateOption {
	return func(g *Gate) { g.reporters = append(g.reporters, r) }
}

// WithLogger задаёт логгер.
func WithLogger(l *logging.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// NewGate создаёт проверку доступа поверх хранилища доверия.
func NewGate(trust TrustStore, opts ...GateOption) *Gate {
	g := &Gate{
		trust:     trust,
		operators: make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logging.GetSecurityLogger()
	}
	return g
}

// Trust возвращает хранилище доверия.
func (g *Gate) Trust() TrustStore { return g.trust }

// IsOperator сообщает, является ли actor оператором.
func (g *Gate) IsOperator(actor uuid.UUID) bool {
	_, ok := g.operators[actor]
	return ok
}

type operatorKey struct{}

// AsOperator помечает контекст запроса оператора (например, по claim is_op
// токена). Такой запрос проходит любую проверку, как и операторы из
// WithOperators.
func AsOperator(ctx context.Context) context.Context {
	return context.WithValue(ctx, operatorKey{}, true)
}

// Bypasses сообщает, проходит ли actor проверки как оператор: по списку
// WithOperators или по контексту AsOperator.
func (g *Gate) Bypasses(ctx context.Context, actor uuid.UUID) bool {
	if g.IsOperator(actor) {
		return true
	}
	op, _ := ctx.Value(operatorKey{}).(bool)
	return op
}

// Allowed - решение без побочных эффектов (без логов и наблюдателей).
func (g *Gate) Allowed(ctx context.Context, actor uuid.UUID, rec *Record) bool {
	if g.Bypasses(ctx, actor) {
		return true
	}
	return CanAccess(ctx, actor, rec, g.trust)
}

// Check возвращает *AccessDeniedError, если actor не может работать с ячейкой.
func (g *Gate) Check(ctx context.Context, actor uuid.UUID, rec *Record) error {
	if g.Bypasses(ctx, actor) {
		return nil
	}
	ok, mode, err := decide(ctx, actor, rec, g.trust)
	if ok {
		return nil
	}
	if err != nil {
		g.logger.Error("Ошибка хранилища доверия для %s: %v", rec.Owner, err)
	}
	denied := &AccessDeniedError{Actor: actor, Owner: rec.Owner, Mode: mode}
	g.logger.Debug("🔒 Отказ в доступе: %s -> владелец %s (%s)", actor, rec.Owner, mode)
	for _, r := range g.reporters {
		r(ctx, Denial{Actor: actor, Owner: rec.Owner, Mode: mode, Err: err})
	}
	return denied
}

// CheckOwner пропускает только владельца (или любого, если владельца нет)
// и операторов. Используется столом безопасности.
func (g *Gate) CheckOwner(ctx context.Context, actor uuid.UUID, rec *Record) error {
	if g.Bypasses(ctx, actor) || !rec.IsOwned() || rec.Owner == actor {
		return nil
	}
	g.logger.Debug("🔒 Стол безопасности: %s не владелец %s", actor, rec.Owner)
	for _, r := range g.reporters {
		r(ctx, Denial{Actor: actor, Owner: rec.Owner, Mode: Private})
	}
	return &AccessDeniedError{Actor: actor, Owner: rec.Owner, Mode: Private}
}
