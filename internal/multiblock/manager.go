package multiblock

import (
	"sort"

	"github.com/annel0/voxelforge/internal/lattice"
	"github.com/annel0/voxelforge/internal/logging"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/elliotchance/orderedmap/v2"
)

// Transition - смена состояния структуры или кандидата.
// Structure == nil для неудачного сканирования кандидата.
type Transition struct {
	Structure *Structure
	Grammar   string
	Seed      cube.Pos
	From      State
	To        State
	Reason    Reason
}

// Observer получает переходы (логирование, метрики, шина событий).
type Observer func(Transition)

// Option настраивает Manager.
type Option func(*Manager)

// WithObserver добавляет наблюдателя переходов.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observers = append(m.observers, o) }
}

// WithLogger задаёт логгер менеджера.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager хранит принадлежность ячеек структурам и очередь пересканирования.
// Ячейка принадлежит не более чем одной структуре. Менеджер не
// потокобезопасен: вызывающий сериализует доступ.
type Manager struct {
	view     View
	grammars []*Grammar

	structures map[ID]*Structure
	members    map[cube.Pos]ID
	queue      *orderedmap.OrderedMap[cube.Pos, struct{}]
	salvage    []Salvage

	current   *Validator
	nextID    ID
	observers []Observer
	logger    *logging.Logger
}

// NewManager создаёт менеджер поверх решётки view.
func NewManager(view View, grammars []*Grammar, opts ...Option) *Manager {
	m := &Manager{
		view:       view,
		grammars:   grammars,
		structures: make(map[ID]*Structure),
		members:    make(map[cube.Pos]ID),
		queue:      orderedmap.NewOrderedMap[cube.Pos, struct{}](),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.GetMultiblockLogger()
	}
	return m
}

// Grammars возвращает известные грамматики.
func (m *Manager) Grammars() []*Grammar { return m.grammars }

// IsCasing сообщает, является ли тег корпусом хотя бы одной грамматики.
func (m *Manager) IsCasing(tag string) bool {
	for _, g := range m.grammars {
		if g.IsCasing(tag) {
			return true
		}
	}
	return false
}

// OnCellChanged сообщает об изменении (установке, удалении, мутации) ячейки.
// Затронутая структура инвалидируется сразу, пересканирование ставится в
// очередь и выполняется в Tick.
func (m *Manager) OnCellChanged(pos cube.Pos) {
	if m.current != nil {
		m.current.MarkDirty()
	}

	var broken []*Structure
	if id, ok := m.members[pos]; ok {
		broken = append(broken, m.structures[id])
	} else {
		for _, s := range m.sortedStructures() {
			if s.Covers(pos) {
				broken = append(broken, s)
			}
		}
	}
	for _, s := range broken {
		m.invalidate(s, ReasonMemberChanged)
		// Изменение внутри большой структуры может не касаться корпуса:
		// пересканирование начинается с уцелевшей ячейки оболочки.
		if seed, ok := m.casingMember(s); ok {
			m.enqueue(seed)
		}
	}

	m.enqueue(pos)
	for _, n := range lattice.Neighbours(pos) {
		if m.IsCasing(m.view.TagAt(n)) {
			m.enqueue(n)
		}
	}
}

// casingMember возвращает первую ячейку оболочки s, всё ещё являющуюся
// корпусом её грамматики.
func (m *Manager) casingMember(s *Structure) (cube.Pos, bool) {
	g := m.grammar(s.Grammar)
	if g == nil {
		return cube.Pos{}, false
	}
	for _, p := range s.Members {
		if g.IsCasing(m.view.TagAt(p)) {
			return p, true
		}
	}
	return cube.Pos{}, false
}

func (m *Manager) grammar(name string) *Grammar {
	for _, g := range m.grammars {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func (m *Manager) enqueue(pos cube.Pos) {
	if _, ok := m.queue.Get(pos); ok {
		return
	}
	m.queue.Set(pos, struct{}{})
}

// Pending возвращает число позиций в очереди пересканирования.
func (m *Manager) Pending() int { return m.queue.Len() }

// Tick выполняет все ожидающие сканирования. Изменения, пришедшие во время
// сканирования, обрабатываются в этом же вызове. Возвращает число проходов.
func (m *Manager) Tick() int {
	passes := 0
	for m.queue.Len() > 0 {
		el := m.queue.Front()
		pos := el.Key
		m.queue.Delete(pos)

		if id, ok := m.members[pos]; ok && m.structures[id].Formed() {
			continue
		}
		tag := m.view.TagAt(pos)
		for _, g := range m.grammars {
			if !g.IsCasing(tag) {
				continue
			}
			n, formed := m.scan(g, pos)
			passes += n
			if formed {
				break
			}
		}
	}
	return passes
}

func (m *Manager) scan(g *Grammar, seed cube.Pos) (int, bool) {
	v := NewValidator(g)
	m.current = v
	m.notify(Transition{Grammar: g.Name, Seed: seed, From: Unformed, To: Scanning})
	res, _ := v.Run(m.view, seed)
	m.current = nil

	if !res.Formed {
		m.logger.Debug("Структура %s от %v не сформирована: %s (%v)", g.Name, seed, res.Reason, res.Bad)
		m.notify(Transition{Grammar: g.Name, Seed: seed, From: Scanning, To: Unformed, Reason: res.Reason})
		return v.Passes(), false
	}

	// Пересекающиеся структуры инвалидируются до регистрации новой.
	for _, p := range res.Members {
		if id, ok := m.members[p]; ok {
			m.invalidate(m.structures[id], ReasonOverlap)
		}
	}

	m.nextID++
	s := newStructure(m.nextID, v, res)
	m.structures[s.ID] = s
	for _, p := range s.Members {
		m.members[p] = s.ID
	}
	m.restoreSalvage(s)

	m.logger.Info("🏗️ Сформирована структура %s", s)
	m.notify(Transition{Structure: s, Grammar: g.Name, Seed: seed, From: Scanning, To: Formed})
	return v.Passes(), true
}

func (m *Manager) invalidate(s *Structure, reason Reason) {
	if s == nil || !s.validator.Invalidate(reason) {
		return
	}
	for _, p := range s.Members {
		if m.members[p] == s.ID {
			delete(m.members, p)
		}
	}
	delete(m.structures, s.ID)

	if contents := s.Contents(); !contents.IsEmpty() {
		m.salvage = append(m.salvage, Salvage{Grammar: s.Grammar, Members: s.Members, Contents: contents})
	}

	m.logger.Info("💥 Структура %s расформирована: %s", s, reason)
	m.notify(Transition{Structure: s, Grammar: s.Grammar, Seed: s.Box.Min, From: Formed, To: Unformed, Reason: reason})
}

// restoreSalvage переносит содержимое прежних баков, пересекающихся с s,
// в новый бак. Излишек сверх ёмкости теряется.
func (m *Manager) restoreSalvage(s *Structure) {
	if s.Tank == nil || len(m.salvage) == 0 {
		return
	}
	kept := m.salvage[:0]
	for _, sv := range m.salvage {
		if sv.Grammar != s.Grammar || !sv.overlaps(s) {
			kept = append(kept, sv)
			continue
		}
		if n := s.Tank.Fill(sv.Contents, slot.Execute); n < sv.Contents.Amount {
			m.logger.Warn("Потеряно %d из %s при восстановлении %s", sv.Contents.Amount-n, sv.Contents, s)
		}
	}
	m.salvage = kept
}

func (m *Manager) notify(t Transition) {
	for _, o := range m.observers {
		o(t)
	}
}

// StructureAt возвращает сформированную структуру, в оболочку которой входит pos.
func (m *Manager) StructureAt(pos cube.Pos) (*Structure, bool) {
	id, ok := m.members[pos]
	if !ok {
		return nil, false
	}
	s, ok := m.structures[id]
	if !ok || !s.Formed() {
		return nil, false
	}
	return s, true
}

// Structures возвращает сформированные структуры в порядке ID.
func (m *Manager) Structures() []*Structure {
	return m.sortedStructures()
}

func (m *Manager) sortedStructures() []*Structure {
	out := make([]*Structure, 0, len(m.structures))
	for _, s := range m.structures {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot возвращает содержимое всех баков (сформированных и спасённых)
// для сохранения.
func (m *Manager) Snapshot() []Salvage {
	out := make([]Salvage, 0, len(m.structures)+len(m.salvage))
	for _, s := range m.sortedStructures() {
		if c := s.Contents(); !c.IsEmpty() {
			out = append(out, Salvage{Grammar: s.Grammar, Members: s.Members, Contents: c})
		}
	}
	for _, sv := range m.salvage {
		out = append(out, Salvage{Grammar: sv.Grammar, Members: sv.Members, Contents: sv.Contents.Copy()})
	}
	return out
}

// Restore добавляет сохранённое содержимое баков. Оно попадёт в структуры
// при их следующем формировании.
func (m *Manager) Restore(salvage []Salvage) {
	for _, sv := range salvage {
		if sv.Contents.IsEmpty() || len(sv.Members) == 0 {
			continue
		}
		m.salvage = append(m.salvage, sv)
	}
}

// SalvageCount возвращает число ожидающих восстановления баков.
func (m *Manager) SalvageCount() int { return len(m.salvage) }

// Enqueue ставит позицию в очередь сканирования (например, после загрузки мира).
func (m *Manager) Enqueue(pos cube.Pos) {
	if m.IsCasing(m.view.TagAt(pos)) {
		m.enqueue(pos)
	}
}
