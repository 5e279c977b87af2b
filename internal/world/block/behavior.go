package block

import (
	"github.com/annel0/voxelforge/internal/resource"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/sideconfig"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/google/uuid"
)

// InteractionKind - вид действия игрока.
type InteractionKind uint8

const (
	Open InteractionKind = iota
	// Wrench поворачивает блок вокруг оси грани, по которой кликнули.
	Wrench
	// Dismantle - гаечный ключ с Shift: блок снимается вместе с данными.
	Dismantle
	// Configure задаёт режим грани для вида передачи.
	Configure
	// SetMode меняет режим доступа. Только владелец.
	SetMode
	Insert
	Extract
	// Trust и Untrust правят список доверия со стола безопасности.
	Trust
	Untrust
	// Override задаёт режим владельца, перекрывающий режимы его ячеек.
	Override
	// ToggleEjector включает или выключает автовыдачу.
	ToggleEjector
	// Reverse переключает направление обратимой машины (Enabled - обратный ход).
	Reverse
)

var interactionNames = [...]string{"open", "wrench", "dismantle", "configure", "set_mode", "insert", "extract", "trust", "untrust", "override", "toggle_ejector", "reverse"}

func (k InteractionKind) String() string {
	if int(k) < len(interactionNames) {
		return interactionNames[k]
	}
	return "unknown"
}

// ParseInteractionKind разбирает имя действия.
func ParseInteractionKind(s string) (InteractionKind, bool) {
	for i, n := range interactionNames {
		if n == s {
			return InteractionKind(i), true
		}
	}
	return 0, false
}

// Mutates сообщает, меняет ли действие состояние ячейки.
func (k InteractionKind) Mutates() bool { return k != Open }

// Interaction - действие игрока над ячейкой.
type Interaction struct {
	Kind  InteractionKind
	Actor uuid.UUID
	// Face - грань, по которой кликнули (ось поворота, грань порта).
	Face cube.Face

	Transmission sideconfig.Transmission
	Channel      sideconfig.Channel
	Mode         security.Mode
	Enabled      bool

	Stack  resource.Stack
	Amount int64
	// Target - игрок, которому выдают или у которого забирают доверие.
	Target uuid.UUID
}

// InteractionResult представляет результат взаимодействия с блоком
type InteractionResult struct {
	Success bool   // Успешно ли выполнено взаимодействие
	Denied  bool   // Отказано проверкой доступа
	Message string // Сообщение для игрока
	// Drop - данные предмета при разборке; ячейка снимается с решётки.
	Drop map[string]string
	// Stack - извлечённая партия (Extract).
	Stack resource.Stack
}

// AccessDeniedMessage - сообщение игроку при отказе в доступе.
const AccessDeniedMessage = "Нет доступа"

// Denied возвращает результат отказа в доступе.
func Denied() InteractionResult {
	return InteractionResult{Denied: true, Message: AccessDeniedMessage}
}

// Behavior определяет поведение блока
type Behavior interface {
	ID() BlockID
	// Tag - строковый тег блока для грамматик структур и сохранения.
	Tag() string
	Name() string
	NeedsTick() bool
	// Init создаёт возможности ячейки (слоты, грани, запись безопасности).
	Init(cell *Cell)
	// OnPlace вызывается после установки и загрузки данных предмета.
	OnPlace(api BlockAPI, cell *Cell)
	Tick(api BlockAPI, cell *Cell)
	OnNeighborChanged(api BlockAPI, cell *Cell, face cube.Face)
	Interact(api BlockAPI, cell *Cell, in Interaction) InteractionResult
	SignalLevel(api BlockAPI, cell *Cell) int
}

// OwnerOnly помечает блоки, открывать которые может только владелец.
type OwnerOnly interface {
	OwnerOnly() bool
}

// Storage - блок, чьё хранилище находится вне ячейки (общий бак структуры).
// Возвращает nil, если хранилища сейчас нет.
type Storage interface {
	Storage(api BlockAPI, cell *Cell, t sideconfig.Transmission) slot.Slot
}

// Ejecting задаёт предел автовыдачи за тик.
type Ejecting interface {
	EjectRate(api BlockAPI, cell *Cell, t sideconfig.Transmission) int64
}

// Base - поведение по умолчанию: статичный блок без реакции на события.
type Base struct {
	BlockID  BlockID
	BlockTag string
	Title    string
}

func (b *Base) ID() BlockID                                  { return b.BlockID }
func (b *Base) Tag() string                                  { return b.BlockTag }
func (b *Base) Name() string                                 { return b.Title }
func (b *Base) NeedsTick() bool                              { return false }
func (b *Base) Init(*Cell)                                   {}
func (b *Base) OnPlace(BlockAPI, *Cell)                      {}
func (b *Base) Tick(BlockAPI, *Cell)                         {}
func (b *Base) OnNeighborChanged(BlockAPI, *Cell, cube.Face) {}
func (b *Base) SignalLevel(BlockAPI, *Cell) int              { return 0 }
func (b *Base) Interact(api BlockAPI, cell *Cell, in Interaction) InteractionResult {
	if res, handled := HandleCommon(api, cell, in); handled {
		return res
	}
	return InteractionResult{Message: "Действие не поддерживается для " + b.Title}
}
