package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/voxelforge/internal/lattice"
	"github.com/annel0/voxelforge/internal/resource"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/sideconfig"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/annel0/voxelforge/internal/world"
	"github.com/annel0/voxelforge/internal/world/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NeighborRequest - хост сообщает, что соседняя ячейка по грани face изменилась.
type NeighborRequest struct {
	Pos  cube.Pos `json:"pos"`
	Face string   `json:"face" binding:"required"`
}

// StackRequest - партия ресурса в запросе.
type StackRequest struct {
	Kind   string `json:"kind" binding:"required"`
	Type   string `json:"type"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

func (s StackRequest) stack() (resource.Stack, error) {
	k, err := resource.ParseKind(s.Kind)
	if err != nil {
		return resource.Stack{}, err
	}
	return resource.Of(k, s.Type, s.Amount), nil
}

// InteractRequest - действие игрока над ячейкой.
type InteractRequest struct {
	Pos          cube.Pos      `json:"pos"`
	Kind         string        `json:"kind" binding:"required"`
	Face         string        `json:"face"`
	Transmission string        `json:"transmission"`
	Channel      string        `json:"channel"`
	Mode         string        `json:"mode"`
	Enabled      bool          `json:"enabled"`
	Stack        *StackRequest `json:"stack"`
	Amount       int64         `json:"amount"`
	Target       string        `json:"target"`
}

// interaction переводит запрос в block.Interaction. Пустые поля не разбираются.
func (r InteractRequest) interaction(actor uuid.UUID) (block.Interaction, error) {
	kind, ok := block.ParseInteractionKind(r.Kind)
	if !ok {
		return block.Interaction{}, errors.New("неизвестное действие " + strconv.Quote(r.Kind))
	}
	in := block.Interaction{Kind: kind, Actor: actor, Enabled: r.Enabled, Amount: r.Amount}

	var err error
	if r.Face != "" {
		if in.Face, err = lattice.ParseFace(r.Face); err != nil {
			return in, err
		}
	}
	if r.Transmission != "" {
		if in.Transmission, err = sideconfig.ParseTransmission(r.Transmission); err != nil {
			return in, err
		}
	}
	if r.Channel != "" {
		if in.Channel, err = sideconfig.ParseChannel(r.Channel); err != nil {
			return in, err
		}
	}
	if r.Mode != "" {
		if in.Mode, err = security.ParseMode(r.Mode); err != nil {
			return in, err
		}
	}
	if r.Stack != nil {
		if in.Stack, err = r.Stack.stack(); err != nil {
			return in, err
		}
	}
	if r.Target != "" {
		if in.Target, err = uuid.Parse(r.Target); err != nil {
			return in, err
		}
	}
	return in, nil
}

// InteractResponse - результат действия.
type InteractResponse struct {
	Denied bool              `json:"denied,omitempty"`
	Drop   map[string]string `json:"drop,omitempty"`
	Stack  *resource.Stack   `json:"stack,omitempty"`
}

// PlaceRequest - установка ячейки; Data - данные предмета после разборки.
type PlaceRequest struct {
	Pos  cube.Pos          `json:"pos"`
	Tag  string            `json:"tag" binding:"required"`
	Data map[string]string `json:"data"`
}

// PortRequest - передача через грань ячейки (трубы хоста).
type PortRequest struct {
	Pos          cube.Pos      `json:"pos"`
	Face         string        `json:"face" binding:"required"`
	Stack        *StackRequest `json:"stack"`
	Transmission string        `json:"transmission"`
	Amount       int64         `json:"amount"`
	Simulate     bool          `json:"simulate"`
}

func (r PortRequest) action() slot.Action {
	if r.Simulate {
		return slot.Simulate
	}
	return slot.Execute
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: msg})
}

// writeError переводит ошибки мира в HTTP-статусы.
func (rs *RestServer) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case world.IsDenied(err):
		status = http.StatusForbidden
	case errors.Is(err, world.ErrNoCell):
		status = http.StatusNotFound
	case errors.Is(err, world.ErrOccupied):
		status = http.StatusConflict
	case errors.Is(err, world.ErrUnknownBlock):
		status = http.StatusBadRequest
	case errors.Is(err, world.ErrPortClosed),
		errors.Is(err, world.ErrNoStorage),
		errors.Is(err, slot.ErrCapacityExceeded),
		errors.Is(err, slot.ErrIncompatible),
		errors.Is(err, slot.ErrRejected):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		rs.logger.Error("Ошибка обработки %s: %v", c.FullPath(), err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}

func posParam(c *gin.Context) (cube.Pos, bool) {
	var pos cube.Pos
	for i, name := range [3]string{"x", "y", "z"} {
		v, err := strconv.Atoi(c.Param(name))
		if err != nil {
			badRequest(c, "Неверная координата "+name)
			return pos, false
		}
		pos[i] = v
	}
	return pos, true
}

// handleNeighborChanged - событие хоста о смене соседа.
func (rs *RestServer) handleNeighborChanged(c *gin.Context) {
	var req NeighborRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	face, err := lattice.ParseFace(req.Face)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	rs.world.OnNeighborChanged(c.Request.Context(), req.Pos, face)
	c.JSON(http.StatusAccepted, GenericResponse{Success: true, Message: "Событие принято"})
}

// handleInteract - действие игрока. Отказ доступа отвечает 403 с Denied.
func (rs *RestServer) handleInteract(c *gin.Context) {
	var req InteractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	in, err := req.interaction(actorOf(c))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := rs.world.OnPlayerInteract(c.Request.Context(), req.Pos, in)
	if err != nil && !world.IsDenied(err) {
		rs.writeError(c, err)
		return
	}

	data := InteractResponse{Denied: res.Denied, Drop: res.Drop}
	if !res.Stack.IsEmpty() {
		data.Stack = &res.Stack
	}
	status := http.StatusOK
	if res.Denied {
		status = http.StatusForbidden
	}
	c.JSON(status, GenericResponse{Success: res.Success, Message: res.Message, Data: data})
}

func (rs *RestServer) handlePlace(c *gin.Context) {
	var req PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	if _, err := rs.world.Place(c.Request.Context(), req.Pos, req.Tag, actorOf(c), req.Data); err != nil {
		rs.writeError(c, err)
		return
	}
	info, _ := rs.world.CellInfo(req.Pos)
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Ячейка установлена", Data: info})
}

func (rs *RestServer) handleBreak(c *gin.Context) {
	pos, ok := posParam(c)
	if !ok {
		return
	}
	drop, err := rs.world.Break(c.Request.Context(), actorOf(c), pos)
	if err != nil {
		rs.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Ячейка снята", Data: drop})
}

func (rs *RestServer) handleCellInfo(c *gin.Context) {
	pos, ok := posParam(c)
	if !ok {
		return
	}
	info, found := rs.world.CellInfo(pos)
	if !found {
		rs.writeError(c, world.ErrNoCell)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: lattice.PosKey(pos), Data: info})
}

// handleSignal - уровень сигнала 0..15 для компараторов хоста.
func (rs *RestServer) handleSignal(c *gin.Context) {
	pos, ok := posParam(c)
	if !ok {
		return
	}
	level := rs.world.SignalAt(c.Request.Context(), pos)
	c.JSON(http.StatusOK, gin.H{"pos": pos, "level": level})
}

func (rs *RestServer) handleStructures(c *gin.Context) {
	list := rs.world.StructureInfos()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список структур",
		Data: gin.H{
			"structures": list,
			"total":      len(list),
		},
	})
}

// handleInsert кладёт партию через грань. Требует режим Input.
func (rs *RestServer) handleInsert(c *gin.Context) {
	var req PortRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Stack == nil {
		badRequest(c, "Неверный формат запроса")
		return
	}
	face, err := lattice.ParseFace(req.Face)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	stack, err := req.Stack.stack()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := rs.world.InsertAt(c.Request.Context(), req.Pos, face, stack, req.action()); err != nil {
		rs.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Принято: " + stack.String()})
}

// handleExtract забирает до Amount единиц через грань. Требует режим Output.
func (rs *RestServer) handleExtract(c *gin.Context) {
	var req PortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	face, err := lattice.ParseFace(req.Face)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := sideconfig.ParseTransmission(req.Transmission)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	out, err := rs.world.ExtractAt(c.Request.Context(), req.Pos, face, t, req.Amount, req.action())
	if err != nil {
		rs.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Выдано: " + out.String(), Data: out})
}

// handleStats возвращает статистику сервера
func (rs *RestServer) handleStats(c *gin.Context) {
	cpuPercent, err := rs.metrics.CPUPercent()
	if err != nil {
		rs.logger.Debug("CPU недоступен: %v", err)
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"tick":       rs.world.CurrentTick(),
			"structures": len(rs.world.StructureInfos()),
			"server": gin.H{
				"uptime":      rs.metrics.GetUptime(),
				"cpu_percent": cpuPercent,
				"server_time": time.Now().Unix(),
			},
			"memory": rs.metrics.MemoryStats(),
		},
	})
}
