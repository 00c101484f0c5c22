package handlers

import (
	"context"
	"net/http"

	"Tempo/internal/auth"
	dom "Tempo/internal/domain"
	"Tempo/internal/dto"

	"github.com/gin-gonic/gin"
)

// SyncService is what the sync handlers need from the service layer.
type SyncService interface {
	SyncProjects(ctx context.Context, userID string, items []dom.Project) (dto.SyncProjectsResponse, error)
	SyncTasks(ctx context.Context, userID string, items []dom.Task) (dto.SyncTasksResponse, error)
	SyncLogs(ctx context.Context, userID string, items []dom.TimedSession) (dto.SyncLogsResponse, error)
	SyncSettings(ctx context.Context, userID string, s dom.Settings) (dto.SyncSettingsResponse, error)
	Load(ctx context.Context, userID string) (dto.LoadData, error)
	SyncAll(ctx context.Context, userID string, req dto.SyncAllRequest) (dto.SyncAllResponse, error)
	LegacySync(ctx context.Context, userID string, req dto.SyncAllRequest) (dto.LegacySyncResponse, error)
}

type SyncHandler struct {
	svc SyncService
}

func NewSyncHandler(svc SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// Projects godoc
// @Summary      Push projects
// @Description  Upserts the given projects and returns the caller's full project set.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.SyncProjectsRequest  true  "Changed projects"
// @Success      200   {object}  dto.SyncProjectsResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /sync/projects [post]
func (h *SyncHandler) Projects(c *gin.Context) {
	var req dto.SyncProjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.SyncProjects(c.Request.Context(), auth.UserIDFromContext(c), req.Projects)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Tasks godoc
// @Summary      Push tasks
// @Tags         sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.SyncTasksRequest  true  "Changed tasks"
// @Success      200   {object}  dto.SyncTasksResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /sync/tasks [post]
func (h *SyncHandler) Tasks(c *gin.Context) {
	var req dto.SyncTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.SyncTasks(c.Request.Context(), auth.UserIDFromContext(c), req.Tasks)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Logs godoc
// @Summary      Push focus sessions
// @Description  Invalid sessions are dropped, counted in rejectedCount and named in rejectedIds.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.SyncLogsRequest  true  "Changed sessions"
// @Success      200   {object}  dto.SyncLogsResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /sync/logs [post]
func (h *SyncHandler) Logs(c *gin.Context) {
	var req dto.SyncLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.SyncLogs(c.Request.Context(), auth.UserIDFromContext(c), req.Logs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Settings godoc
// @Summary      Push settings
// @Tags         sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.SyncSettingsRequest  true  "Settings document"
// @Success      200   {object}  dto.SyncSettingsResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /sync/settings [post]
func (h *SyncHandler) Settings(c *gin.Context) {
	var req dto.SyncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.SyncSettings(c.Request.Context(), auth.UserIDFromContext(c), req.Settings)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Load godoc
// @Summary      Full snapshot
// @Tags         sync
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.LoadResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /sync/load [get]
func (h *SyncHandler) Load(c *gin.Context) {
	data, err := h.svc.Load(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LoadResponse{Success: true, Data: data})
}

// All godoc
// @Summary      Push every collection
// @Tags         sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.SyncAllRequest  true  "All changed records"
// @Success      200   {object}  dto.SyncAllResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /sync/all [post]
func (h *SyncHandler) All(c *gin.Context) {
	var req dto.SyncAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.SyncAll(c.Request.Context(), auth.UserIDFromContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Legacy godoc
// @Summary      Legacy combined sync
// @Description  Cookie-authenticated combined push. The returned projects always contain the full system catalogue.
// @Tags         legacy
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        body  body      dto.SyncAllRequest  true  "All changed records"
// @Success      200   {object}  dto.LegacySyncResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /legacy/sync [post]
func (h *SyncHandler) Legacy(c *gin.Context) {
	var req dto.SyncAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.LegacySync(c.Request.Context(), auth.UserIDFromContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
