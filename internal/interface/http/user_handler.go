package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/servicehooks/userbase/internal/application"
	"github.com/servicehooks/userbase/internal/domain/entity"
	"github.com/servicehooks/userbase/internal/domain/repository"
	"github.com/servicehooks/userbase/pkg/response"
	"github.com/servicehooks/userbase/pkg/validation"
)

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type updateUserRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,min=2,max=50"`
	PhotoURL    *string `json:"photo_url" binding:"omitempty,url"`
}

type changeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin user guest"`
}

// List serves offset-paginated pages: ?limit=, ?start_after=, plus an
// optional ?order_by= / ?direction= override of the newest-first default.
func (h *UserHandler) List(c *gin.Context) {
	opts := repository.QueryOptions{}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("start_after", "0")); err == nil {
		opts.StartAfter = v
	}
	if field := c.Query("order_by"); field != "" {
		dir := repository.Asc
		if c.Query("direction") == "desc" {
			dir = repository.Desc
		}
		opts.OrderBy = &repository.OrderBy{Field: field, Direction: dir}
	}

	page, err := h.Svc.ListUsers(&opts)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]gin.H, 0, len(page.Data))
	for _, u := range page.Data {
		data = append(data, userPayload(u))
	}
	meta := gin.H{"total": page.Total, "has_more": page.HasMore}
	if page.LastDoc != nil {
		meta["last_doc"] = *page.LastDoc
	}
	response.Success(c, http.StatusOK, data, "users", meta)
}

func (h *UserHandler) Search(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		response.Error[any](c, http.StatusBadRequest, "missing search term", nil)
		return
	}

	users, err := h.Svc.SearchUsers(term)
	if err != nil {
		respondError(c, err)
		return
	}
	data := make([]gin.H, 0, len(users))
	for _, u := range users {
		data = append(data, userPayload(u))
	}
	response.Success(c, http.StatusOK, data, "search results", gin.H{"count": len(data)})
}

func (h *UserHandler) Stats(c *gin.Context) {
	stats, err := h.Svc.GetUserStats()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats, "user stats", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.Svc.GetUser(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userPayload(user), "user", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	user, err := h.Svc.UpdateUser(c.Param("id"), entity.UpdateProfile{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userPayload(user), "user updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.DeleteUser(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "user deleted", nil)
}

func (h *UserHandler) Deactivate(c *gin.Context) {
	if err := h.Svc.DeactivateUser(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"active": false}, "user deactivated", nil)
}

func (h *UserHandler) Activate(c *gin.Context) {
	if err := h.Svc.ActivateUser(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"active": true}, "user activated", nil)
}

func (h *UserHandler) ChangeRole(c *gin.Context) {
	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	user, err := h.Svc.ChangeUserRole(c.Param("id"), entity.UserRole(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userPayload(user), "role changed", nil)
}
