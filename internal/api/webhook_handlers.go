package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// webhookID разбирает :id и проверяет, что менеджер webhook'ов подключён.
func (rs *RestServer) webhookID(c *gin.Context) (uint64, bool) {
	if rs.webhooks == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Success: false, Message: "Webhook'и отключены"})
		return 0, false
	}
	if c.Param("id") == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Неверный ID webhook'а")
		return 0, false
	}
	return id, true
}

func webhookNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Webhook не найден"})
}

// handleGetOutboundWebhooks возвращает список исходящих webhook'ов
func (rs *RestServer) handleGetOutboundWebhooks(c *gin.Context) {
	if _, ok := rs.webhookID(c); !ok {
		return
	}
	list := rs.webhooks.GetWebhooks()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список webhook'ов получен",
		Data: gin.H{
			"webhooks": list,
			"total":    len(list),
		},
	})
}

// handleCreateOutboundWebhook создает новый исходящий webhook
func (rs *RestServer) handleCreateOutboundWebhook(c *gin.Context) {
	if _, ok := rs.webhookID(c); !ok {
		return
	}
	var webhook OutboundWebhook
	if err := c.ShouldBindJSON(&webhook); err != nil {
		badRequest(c, "Неверный формат webhook'а: "+err.Error())
		return
	}
	if webhook.Name == "" || webhook.URL == "" || len(webhook.Events) == 0 {
		badRequest(c, "Обязательные поля: name, url, events")
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Webhook создан успешно",
		Data:    rs.webhooks.AddWebhook(webhook),
	})
}

// handleGetOutboundWebhook возвращает webhook по ID
func (rs *RestServer) handleGetOutboundWebhook(c *gin.Context) {
	id, ok := rs.webhookID(c)
	if !ok {
		return
	}
	webhook, found := rs.webhooks.GetWebhook(id)
	if !found {
		webhookNotFound(c)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Webhook найден", Data: webhook})
}

// handleUpdateOutboundWebhook обновляет webhook
func (rs *RestServer) handleUpdateOutboundWebhook(c *gin.Context) {
	id, ok := rs.webhookID(c)
	if !ok {
		return
	}
	var updates OutboundWebhook
	if err := c.ShouldBindJSON(&updates); err != nil {
		badRequest(c, "Неверный формат обновлений: "+err.Error())
		return
	}
	webhook, found := rs.webhooks.UpdateWebhook(id, updates)
	if !found {
		webhookNotFound(c)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Webhook обновлен успешно", Data: webhook})
}

// handleDeleteOutboundWebhook удаляет webhook
func (rs *RestServer) handleDeleteOutboundWebhook(c *gin.Context) {
	id, ok := rs.webhookID(c)
	if !ok {
		return
	}
	if !rs.webhooks.DeleteWebhook(id) {
		webhookNotFound(c)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Webhook удален успешно"})
}
