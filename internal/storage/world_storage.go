// Package storage сохраняет состояние мира в BadgerDB: плоские карты ячеек
// (JSON, сжатый zstd) по ключу позиции и содержимое баков структур.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/annel0/voxelforge/internal/lattice"
	"github.com/annel0/voxelforge/internal/logging"
	"github.com/annel0/voxelforge/internal/world"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

const (
	cellPrefix    = "cell:"
	structuresKey = "structures"
	tickKey       = "tick"
)

// ErrNotReady - хранилище закрыто.
var ErrNotReady = errors.New("storage: not ready")

// WorldStorage представляет собой хранилище данных мира
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewWorldStorage открывает хранилище в каталоге dataPath.
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	opts := badger.DefaultOptions(dataPath)
	opts.Logger = nil // Отключаем логирование BadgerDB
	return open(opts, dataPath)
}

// NewInMemoryWorldStorage создаёт хранилище без записи на диск (тесты, dev).
func NewInMemoryWorldStorage() (*WorldStorage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, ":memory:")
}

func open(opts badger.Options, path string) (*WorldStorage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}
	return &WorldStorage{db: db, dbPath: path, isReady: true, enc: enc, dec: dec}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}
	ws.isReady = false
	ws.dec.Close()
	ws.enc.Close()
	return ws.db.Close()
}

func (ws *WorldStorage) encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return ws.enc.EncodeAll(raw, nil), nil
}

func (ws *WorldStorage) decode(data []byte, v any) error {
	raw, err := ws.dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("ошибка распаковки: %w", err)
	}
	return json.Unmarshal(raw, v)
}

// Snapshot - полное сохраняемое состояние мира.
type Snapshot = world.State

// SaveWorld сохраняет согласованный снимок мира. Ячейки, которых больше
// нет в мире, удаляются из хранилища.
func (ws *WorldStorage) SaveWorld(w *world.World) error {
	return ws.Save(w.Export())
}

// Save записывает снимок.
func (ws *WorldStorage) Save(snap Snapshot) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrNotReady
	}

	stale, err := ws.cellKeys()
	if err != nil {
		return err
	}

	wb := ws.db.NewWriteBatch()
	defer wb.Cancel()

	for pos, cd := range snap.Cells {
		key := cellPrefix + lattice.PosKey(pos)
		delete(stale, key)
		data, err := ws.encode(cd)
		if err != nil {
			return fmt.Errorf("ошибка сериализации ячейки %s: %w", key, err)
		}
		if err := wb.Set([]byte(key), data); err != nil {
			return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
		}
	}
	for key := range stale {
		if err := wb.Delete([]byte(key)); err != nil {
			return fmt.Errorf("ошибка удаления %s: %w", key, err)
		}
	}

	data, err := ws.encode(snap.Structures)
	if err != nil {
		return fmt.Errorf("ошибка сериализации структур: %w", err)
	}
	if err := wb.Set([]byte(structuresKey), data); err != nil {
		return err
	}
	if err := wb.Set([]byte(tickKey), []byte(fmt.Sprint(snap.Tick))); err != nil {
		return err
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка записи в BadgerDB: %w", err)
	}

	logging.Debug("💾 Мир сохранён: ячеек %d, баков %d, удалено %d", len(snap.Cells), len(snap.Structures), len(stale))
	return nil
}

// cellKeys возвращает ключи всех сохранённых ячеек.
func (ws *WorldStorage) cellKeys() (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	err := ws.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(cellPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys[string(it.Item().KeyCopy(nil))] = struct{}{}
		}
		return nil
	})
	return keys, err
}

// Load читает снимок. Пустое хранилище даёт пустой снимок.
func (ws *WorldStorage) Load() (Snapshot, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	snap := Snapshot{Cells: make(map[cube.Pos]world.CellData)}
	if !ws.isReady {
		return snap, ErrNotReady
	}

	err := ws.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(cellPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			pos, err := lattice.ParsePosKey(strings.TrimPrefix(key, cellPrefix))
			if err != nil {
				return err
			}
			var cd world.CellData
			if err := item.Value(func(val []byte) error { return ws.decode(val, &cd) }); err != nil {
				return fmt.Errorf("ошибка десериализации %s: %w", key, err)
			}
			snap.Cells[pos] = cd
		}

		item, err := txn.Get([]byte(structuresKey))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error { return ws.decode(val, &snap.Structures) }); err != nil {
				return fmt.Errorf("ошибка десериализации структур: %w", err)
			}
		}

		item, err = txn.Get([]byte(tickKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			_, err := fmt.Sscan(string(val), &snap.Tick)
			return err
		})
	})
	if err != nil {
		return snap, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return snap, nil
}

// LoadWorld загружает ячейки и баки в мир.
func (ws *WorldStorage) LoadWorld(w *world.World) error {
	snap, err := ws.Load()
	if err != nil {
		return err
	}
	return w.Load(snap)
}
