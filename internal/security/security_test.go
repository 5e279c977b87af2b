package security

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	friend   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	stranger = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	operator = uuid.MustParse("44444444-4444-4444-4444-444444444444")
)

func TestCanAccess_OwnerAlwaysAllowed(t *testing.T) {
	ctx := context.Background()
	for _, mode := range []Mode{Public, Private, Trusted} {
		rec := &Record{Owner: owner, Mode: mode}
		assert.True(t, CanAccess(ctx, owner, rec, nil), "владелец в режиме %s", mode)
	}
}

func TestCanAccess_Modes(t *testing.T) {
	ctx := context.Background()
	trust := NewMemoryTrust()
	require.NoError(t, trust.Trust(ctx, owner, friend))

	assert.True(t, CanAccess(ctx, stranger, nil, trust), "ячейка без записи открыта")
	assert.True(t, CanAccess(ctx, stranger, &Record{Mode: Private}, trust), "ячейка без владельца открыта")
	assert.True(t, CanAccess(ctx, stranger, &Record{Owner: owner, Mode: Public}, trust))

	trusted := &Record{Owner: owner, Mode: Trusted}
	assert.True(t, CanAccess(ctx, friend, trusted, trust))
	assert.False(t, CanAccess(ctx, stranger, trusted, trust))
	assert.False(t, CanAccess(ctx, friend, trusted, nil), "без хранилища доверия никто не доверен")

	private := &Record{Owner: owner, Mode: Private}
	assert.False(t, CanAccess(ctx, friend, private, trust), "Private закрыт и для доверенных")
	assert.False(t, CanAccess(ctx, stranger, private, trust))
}

func TestCanAccess_OwnerOverride(t *testing.T) {
	ctx := context.Background()
	trust := NewMemoryTrust()
	rec := &Record{Owner: owner, Mode: Public}

	require.NoError(t, trust.SetOverride(ctx, owner, Private, true))
	assert.False(t, CanAccess(ctx, stranger, rec, trust))
	assert.True(t, CanAccess(ctx, owner, rec, trust))

	require.NoError(t, trust.SetOverride(ctx, owner, Private, false))
	assert.True(t, CanAccess(ctx, stranger, rec, trust))
}

type failingTrust struct{ *MemoryTrust }

func (failingTrust) IsTrusted(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, errors.New("connection refused")
}

func TestGate_CheckReportsDenial(t *testing.T) {
	ctx := context.Background()
	var denials []Denial
	g := NewGate(NewMemoryTrust(),
		WithOperators(operator),
		WithLogger(logging.NewDiscardLogger()),
		WithReporter(func(_ context.Context, d Denial) { denials = append(denials, d) }),
	)
	rec := &Record{Owner: owner, Mode: Private}

	err := g.Check(ctx, stranger, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccessDenied)
	var denied *AccessDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, stranger, denied.Actor)
	assert.Equal(t, Private, denied.Mode)
	require.Len(t, denials, 1)

	assert.NoError(t, g.Check(ctx, owner, rec))
	assert.NoError(t, g.Check(ctx, operator, rec), "оператор проходит любую проверку")
	assert.Len(t, denials, 1)
}

func TestGate_TrustStoreErrorDenies(t *testing.T) {
	g := NewGate(failingTrust{NewMemoryTrust()}, WithLogger(logging.NewDiscardLogger()))
	err := g.Check(context.Background(), friend, &Record{Owner: owner, Mode: Trusted})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestGate_CheckOwner(t *testing.T) {
	ctx := context.Background()
	g := NewGate(NewMemoryTrust(), WithLogger(logging.NewDiscardLogger()))
	require.NoError(t, g.Trust().Trust(ctx, owner, friend))

	rec := &Record{Owner: owner, Mode: Public}
	assert.NoError(t, g.CheckOwner(ctx, owner, rec))
	assert.ErrorIs(t, g.CheckOwner(ctx, friend, rec), ErrAccessDenied, "стол открывает только владелец")
	assert.NoError(t, g.CheckOwner(ctx, stranger, &Record{}))
}

func TestGate_OperatorContext(t *testing.T) {
	g := NewGate(NewMemoryTrust(), WithLogger(logging.NewDiscardLogger()))
	rec := &Record{Owner: owner, Mode: Private}

	assert.Error(t, g.Check(context.Background(), stranger, rec))
	ctx := AsOperator(context.Background())
	assert.NoError(t, g.Check(ctx, stranger, rec))
	assert.NoError(t, g.CheckOwner(ctx, stranger, rec))
	assert.True(t, g.Allowed(ctx, stranger, rec))
}

func TestRecord_SaveLoad(t *testing.T) {
	rec := &Record{Owner: owner, Mode: Trusted}
	m := map[string]string{}
	rec.Save(m)

	var got Record
	require.NoError(t, got.Load(m))
	assert.Equal(t, *rec, got)

	m["owner"] = "not-a-uuid"
	assert.Error(t, got.Load(m))
	assert.False(t, got.IsOwned())
}

func TestMemoryTrust_List(t *testing.T) {
	ctx := context.Background()
	trust := NewMemoryTrust()
	require.NoError(t, trust.Trust(ctx, owner, stranger))
	require.NoError(t, trust.Trust(ctx, owner, friend))
	require.NoError(t, trust.Untrust(ctx, owner, stranger))

	ids, err := trust.Trusted(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{friend}, ids)
}

func TestRedisTrust_Roundtrip(t *testing.T) {
	addr := os.Getenv("VF_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	store, err := NewRedisTrust(RedisConfig{Addr: addr, KeyPrefix: "vf-test:" + uuid.NewString() + ":"})
	if err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
		return
	}
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Trust(ctx, owner, friend))
	ok, err := store.IsTrusted(ctx, owner, friend)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, CanAccess(ctx, friend, &Record{Owner: owner, Mode: Trusted}, store))

	require.NoError(t, store.SetOverride(ctx, owner, Private, true))
	assert.False(t, CanAccess(ctx, friend, &Record{Owner: owner, Mode: Trusted}, store))
	require.NoError(t, store.SetOverride(ctx, owner, Private, false))

	require.NoError(t, store.Untrust(ctx, owner, friend))
	ids, err := store.Trusted(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
