package world

import (
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/google/uuid"
)

// EventType определяет тип события мира
type EventType uint8

const (
	EventCellPlaced        EventType = iota // Установка ячейки
	EventCellRemoved                        // Снятие ячейки (поломка, разборка)
	EventStructureFormed                    // Структура сформирована
	EventStructureUnformed                  // Структура расформирована
	EventInteraction                        // Успешное действие игрока
)

var eventTypeNames = [...]string{"cell_placed", "cell_removed", "structure_formed", "structure_unformed", "interaction"}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "unknown"
}

// Event - событие мира для внешних слушателей (шина событий, метрики).
type Event struct {
	Type  EventType `json:"-"`
	Pos   cube.Pos  `json:"pos"`
	Tag   string    `json:"tag,omitempty"`   // Тег блока
	Actor uuid.UUID `json:"actor,omitempty"` // Игрок, если событие вызвано им

	// Поля событий структур
	Structure string `json:"structure,omitempty"` // Имя грамматики
	Reason    string `json:"reason,omitempty"`    // Причина расформирования
	Capacity  int64  `json:"capacity,omitempty"`

	Time time.Time `json:"time"`
}

// Listener получает события мира. Вызывается под блокировкой мира и
// не должен обращаться к миру.
type Listener func(Event)
