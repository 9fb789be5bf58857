package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchyard/internal/apperr"
	"github.com/zulandar/switchyard/internal/kanban"
)

type handler struct {
	svc *kanban.Service
	hub *Hub
	log logrus.FieldLogger
}

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, h *handler) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v := router.Group("/api")

	// Boards and field definitions.
	v.GET("/boards/:board", h.getBoard)
	v.GET("/boards/:board/fields", h.listFields)
	v.POST("/boards/:board/fields", h.createField)
	v.PUT("/boards/:board/fields/order", h.reorderFields)
	v.POST("/boards/:board/fields/validate", h.validateFields)
	if h.hub != nil {
		v.GET("/boards/:board/events", h.streamEvents)
	}
	v.PATCH("/fields/:field", h.updateField)
	v.DELETE("/fields/:field", h.deleteField)

	// Columns.
	v.GET("/columns/:column/tasks", h.columnTasks)
	v.PUT("/columns/:column/order", h.reorderColumn)
	v.PUT("/columns/:column/wip-limit", h.setWipLimit)

	// Tasks.
	v.POST("/tasks", h.createTask)
	v.PATCH("/tasks/:task", h.updateTask)
	v.POST("/tasks/:task/move", h.moveTask)
	v.POST("/tasks/:task/archive", h.archiveTask)
	v.POST("/tasks/:task/restore", h.restoreTask)
}

func actor(c *gin.Context) string {
	return c.GetHeader(ActorHeader)
}

// bind decodes the JSON body into dst, failing the request on malformed input.
func (h *handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, apperr.Invalid("body", "malformed", "request body: %v", err))
		return false
	}
	return true
}

// reply writes v, or the error when err is set.
func (h *handler) reply(c *gin.Context, status int, v any, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, v)
}

type idList struct {
	IDs []string `json:"ids"`
}

func (h *handler) getBoard(c *gin.Context) {
	view, err := h.svc.Board(c.Request.Context(), actor(c), c.Param("board"))
	h.reply(c, http.StatusOK, view, err)
}

func (h *handler) listFields(c *gin.Context) {
	defs, err := h.svc.ListFields(c.Request.Context(), actor(c), c.Param("board"))
	h.reply(c, http.StatusOK, defs, err)
}

func (h *handler) createField(c *gin.Context) {
	var req kanban.CreateFieldRequest
	if !h.bind(c, &req) {
		return
	}
	def, err := h.svc.CreateField(c.Request.Context(), actor(c), c.Param("board"), req)
	h.reply(c, http.StatusCreated, def, err)
}

func (h *handler) reorderFields(c *gin.Context) {
	var req idList
	if !h.bind(c, &req) {
		return
	}
	defs, err := h.svc.ReorderFields(c.Request.Context(), actor(c), c.Param("board"), req.IDs)
	h.reply(c, http.StatusOK, defs, err)
}

func (h *handler) validateFields(c *gin.Context) {
	var req struct {
		Values map[string]any `json:"custom_fields"`
	}
	if !h.bind(c, &req) {
		return
	}
	values, err := h.svc.ValidateCustomFields(c.Request.Context(), actor(c), c.Param("board"), req.Values)
	h.reply(c, http.StatusOK, gin.H{"custom_fields": values}, err)
}

func (h *handler) updateField(c *gin.Context) {
	var req kanban.UpdateFieldRequest
	if !h.bind(c, &req) {
		return
	}
	req.FieldID = c.Param("field")
	def, err := h.svc.UpdateField(c.Request.Context(), actor(c), req)
	h.reply(c, http.StatusOK, def, err)
}

func (h *handler) deleteField(c *gin.Context) {
	purged, err := h.svc.DeleteField(c.Request.Context(), actor(c), c.Param("field"))
	h.reply(c, http.StatusOK, gin.H{"purged": purged}, err)
}

func (h *handler) columnTasks(c *gin.Context) {
	tasks, err := h.svc.ColumnTasks(c.Request.Context(), actor(c), c.Param("column"))
	h.reply(c, http.StatusOK, tasks, err)
}

func (h *handler) reorderColumn(c *gin.Context) {
	var req idList
	if !h.bind(c, &req) {
		return
	}
	tasks, err := h.svc.ReorderColumn(c.Request.Context(), actor(c), c.Param("column"), req.IDs)
	h.reply(c, http.StatusOK, tasks, err)
}

func (h *handler) setWipLimit(c *gin.Context) {
	var req struct {
		WipLimit *int `json:"wip_limit"`
	}
	if !h.bind(c, &req) {
		return
	}
	col, err := h.svc.SetWipLimit(c.Request.Context(), actor(c), c.Param("column"), req.WipLimit)
	h.reply(c, http.StatusOK, col, err)
}

func (h *handler) createTask(c *gin.Context) {
	var req kanban.CreateTaskRequest
	if !h.bind(c, &req) {
		return
	}
	task, err := h.svc.CreateTask(c.Request.Context(), actor(c), req)
	h.reply(c, http.StatusCreated, task, err)
}

func (h *handler) updateTask(c *gin.Context) {
	var req kanban.UpdateTaskRequest
	if !h.bind(c, &req) {
		return
	}
	req.TaskID = c.Param("task")
	task, err := h.svc.UpdateTask(c.Request.Context(), actor(c), req)
	h.reply(c, http.StatusOK, task, err)
}

func (h *handler) moveTask(c *gin.Context) {
	var req kanban.MoveRequest
	if !h.bind(c, &req) {
		return
	}
	req.TaskID = c.Param("task")
	task, err := h.svc.MoveTask(c.Request.Context(), actor(c), req)
	h.reply(c, http.StatusOK, task, err)
}

func (h *handler) archiveTask(c *gin.Context) {
	task, err := h.svc.ArchiveTask(c.Request.Context(), actor(c), c.Param("task"))
	h.reply(c, http.StatusOK, task, err)
}

func (h *handler) restoreTask(c *gin.Context) {
	task, err := h.svc.RestoreTask(c.Request.Context(), actor(c), c.Param("task"))
	h.reply(c, http.StatusOK, task, err)
}
