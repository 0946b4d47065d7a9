package pass

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"deskhub/internal/api"
	"deskhub/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListTypes(c *gin.Context) {
	types, err := h.service.ListTypes(c.Request.Context())
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, types)
}

func (h *Handler) Balance(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	entitlements, err := h.service.Balance(c.Request.Context(), userID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, entitlements)
}

type purchaseRequest struct {
	PassTypeID int64 `json:"pass_type_id" binding:"required"`
}

func (h *Handler) Purchase(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	entitlement, err := h.service.Purchase(c.Request.Context(), userID, req.PassTypeID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, entitlement)
}

func (h *Handler) Get(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	passID, err := strconv.ParseInt(c.Param("passID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid passID"})
		return
	}

	entitlement, err := h.service.GetEntitlement(c.Request.Context(), passID)
	if err != nil {
		api.Error(c, err)
		return
	}
	if entitlement.UserID != userID {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "pass not found"})
		return
	}

	c.JSON(http.StatusOK, entitlement)
}
