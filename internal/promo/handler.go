package promo

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"deskhub/internal/api"
)

type Handler struct {
	service Service
	repo    Repository
}

func NewHandler(service Service, repo Repository) *Handler {
	return &Handler{service: service, repo: repo}
}

// Create registers a new promo code. Admin only.
func (h *Handler) Create(c *gin.Context) {
	var req PromoCode
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	if req.Code == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "code is required"})
		return
	}
	if req.DiscountType != TypePercentage && req.DiscountType != TypeFixed {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "discount_type must be percentage or fixed"})
		return
	}

	created, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetByCode(c *gin.Context) {
	promo, err := h.repo.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "promo code not found"})
			return
		}
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, promo)
}
