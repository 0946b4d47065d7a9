package location

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"deskhub/internal/api"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(c *gin.Context) {
	locations, err := h.repo.ListLocations(c.Request.Context())
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, locations)
}

func (h *Handler) Get(c *gin.Context) {
	locationID, err := strconv.ParseInt(c.Param("locationID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid locationID"})
		return
	}

	loc, err := h.repo.GetLocation(c.Request.Context(), locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "location not found"})
			return
		}
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, loc)
}

func (h *Handler) ListSeats(c *gin.Context) {
	locationID, err := strconv.ParseInt(c.Param("locationID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid locationID"})
		return
	}

	seats, err := h.repo.ListSeats(c.Request.Context(), locationID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, seats)
}

// Create adds a location. Admin only.
func (h *Handler) Create(c *gin.Context) {
	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	rate, err := decimal.NewFromString(req.HourlyRate)
	if err != nil || !rate.IsPositive() {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "hourly_rate must be a positive decimal"})
		return
	}

	loc, err := h.repo.CreateLocation(c.Request.Context(), req.Name, req.Address, rate)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, loc)
}

// CreateSeat adds a seat to a location. Admin only.
func (h *Handler) CreateSeat(c *gin.Context) {
	locationID, err := strconv.ParseInt(c.Param("locationID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid locationID"})
		return
	}

	var req CreateSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	seat, err := h.repo.CreateSeat(c.Request.Context(), locationID, req.Label, req.Zone)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, seat)
}
