// Package recipe хранит рецепты машин. Реестр передаётся машинам явно.
package recipe

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/annel0/voxelforge/internal/resource"
	"gopkg.in/yaml.v3"
)

// ItemCount - предмет и количество.
type ItemCount struct {
	Item  string `yaml:"item"`
	Count int64  `yaml:"count"`
}

// GasUsage - газ и его расход за одну операцию.
type GasUsage struct {
	Gas    string `yaml:"gas"`
	Amount int64  `yaml:"amount"`
}

// Injecting - рецепт камеры химической инъекции: предмет + газ → предмет.
type Injecting struct {
	ID     string    `yaml:"id"`
	Input  ItemCount `yaml:"input"`
	Gas    GasUsage  `yaml:"gas"`
	Output ItemCount `yaml:"output"`
	Ticks  int       `yaml:"ticks"`
}

// Validate проверяет рецепт.
func (r *Injecting) Validate() error {
	var errs []error
	if r.ID == "" {
		errs = append(errs, errors.New("recipe: empty id"))
	}
	if r.Input.Item == "" || r.Input.Count <= 0 {
		errs = append(errs, fmt.Errorf("recipe %s: bad item input", r.ID))
	}
	if r.Gas.Gas == "" || r.Gas.Amount <= 0 {
		errs = append(errs, fmt.Errorf("recipe %s: bad gas input", r.ID))
	}
	if r.Output.Item == "" || r.Output.Count <= 0 {
		errs = append(errs, fmt.Errorf("recipe %s: bad output", r.ID))
	}
	if r.Ticks <= 0 {
		r.Ticks = DefaultTicks
	}
	return errors.Join(errs...)
}

// DefaultTicks - длительность операции, если рецепт её не задаёт.
const DefaultTicks = 200

// Matches сообщает, подходит ли рецепт к содержимому слотов.
func (r *Injecting) Matches(item, gas resource.Stack) bool {
	return item.Kind == resource.KindItem && item.Type == r.Input.Item && item.Amount >= r.Input.Count &&
		gas.Kind == resource.KindGas && gas.Type == r.Gas.Gas
}

// OutputStack возвращает результат рецепта.
func (r *Injecting) OutputStack() resource.Stack {
	return resource.Of(resource.KindItem, r.Output.Item, r.Output.Count)
}

// Registry - набор рецептов инъекции.
type Registry struct {
	byID   map[string]*Injecting
	byItem map[string][]*Injecting
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*Injecting),
		byItem: make(map[string][]*Injecting),
	}
}

// Add регистрирует рецепт. Повторный ID - ошибка.
func (r *Registry) Add(rec Injecting) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if _, ok := r.byID[rec.ID]; ok {
		return fmt.Errorf("recipe %s already registered", rec.ID)
	}
	p := &rec
	r.byID[rec.ID] = p
	r.byItem[rec.Input.Item] = append(r.byItem[rec.Input.Item], p)
	return nil
}

// Get возвращает рецепт по ID.
func (r *Registry) Get(id string) (*Injecting, bool) {
	rec, ok := r.byID[id]
	return rec, ok
}

// Find возвращает первый рецепт (в порядке регистрации) для предмета и газа.
func (r *Registry) Find(item, gas resource.Stack) (*Injecting, bool) {
	for _, rec := range r.byItem[item.Type] {
		if rec.Matches(item, gas) {
			return rec, true
		}
	}
	return nil, false
}

// ValidItem сообщает, используется ли предмет хотя бы в одном рецепте.
func (r *Registry) ValidItem(item string) bool {
	return len(r.byItem[item]) > 0
}

// ValidGas сообщает, используется ли газ хотя бы в одном рецепте.
func (r *Registry) ValidGas(gas string) bool {
	for _, rec := range r.byID {
		if rec.Gas.Gas == gas {
			return true
		}
	}
	return false
}

// IDs возвращает отсортированные ID рецептов.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len возвращает число рецептов.
func (r *Registry) Len() int { return len(r.byID) }

type file struct {
	Injecting []Injecting `yaml:"injecting"`
}

// LoadBytes добавляет рецепты из YAML-документа.
func (r *Registry) LoadBytes(data []byte) error {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("ошибка парсинга рецептов: %w", err)
	}
	var errs []error
	for _, rec := range f.Injecting {
		if err := r.Add(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadFile добавляет рецепты из YAML-файла.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла рецептов: %w", err)
	}
	return r.LoadBytes(data)
}

// Defaults возвращает реестр со встроенными рецептами.
func Defaults() *Registry {
	r := NewRegistry()
	for _, rec := range []Injecting{
		{ID: "injecting/osmium_shard", Input: ItemCount{"osmium_clump", 1}, Gas: GasUsage{"hydrogen_chloride", 1}, Output: ItemCount{"osmium_shard", 1}},
		{ID: "injecting/iron_shard", Input: ItemCount{"iron_clump", 1}, Gas: GasUsage{"hydrogen_chloride", 1}, Output: ItemCount{"iron_shard", 1}},
		{ID: "injecting/clay", Input: ItemCount{"dirt", 1}, Gas: GasUsage{"water_vapor", 1}, Output: ItemCount{"clay_ball", 1}},
	} {
		_ = r.Add(rec)
	}
	return r
}
