package booking

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

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

func (h *Handler) Create(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindingError(c, err)
		return
	}

	booking, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

func (h *Handler) Get(c *gin.Context) {
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}

	booking, err := h.service.GetByID(c.Request.Context(), bookingID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListMine returns the caller's bookings. With a ?ref= query it looks a
// single booking up by reference instead.
func (h *Handler) ListMine(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	if ref := c.Query("ref"); ref != "" {
		booking, err := h.service.GetByRef(c.Request.Context(), ref)
		if err != nil {
			api.Error(c, err)
			return
		}
		if booking.UserID != userID {
			api.Error(c, ErrNotFound)
			return
		}
		c.JSON(http.StatusOK, booking)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bookings, err := h.service.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}

	booking, err := h.service.ConfirmPayment(c.Request.Context(), userID, bookingID)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *Handler) Reschedule(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindingError(c, err)
		return
	}

	booking, err := h.service.Reschedule(c.Request.Context(), userID, bookingID, req)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *Handler) ConfirmReschedulePayment(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}

	booking, err := h.service.ConfirmReschedulePayment(c.Request.Context(), userID, bookingID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *Handler) Extend(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}

	var req ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindingError(c, err)
		return
	}

	ext, err := h.service.Extend(c.Request.Context(), userID, bookingID, req)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ext)
}

func (h *Handler) ConfirmExtensionPayment(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}
	extensionID, ok := pathID(c, "extensionID")
	if !ok {
		return
	}

	var req ConfirmExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	booking, err := h.service.ConfirmExtensionPayment(c.Request.Context(), userID, bookingID, extensionID, req.CreditAmount)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *Handler) ApplyPass(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}

	var req ApplyPassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindingError(c, err)
		return
	}

	result, err := h.service.ApplyPass(c.Request.Context(), userID, bookingID, req.PassID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type validatePassRequest struct {
	PassTypeID int64     `json:"pass_type_id" binding:"required"`
	LocationID int64     `json:"location_id" binding:"required"`
	StartAt    time.Time `json:"start_at" binding:"required"`
	EndAt      time.Time `json:"end_at" binding:"required"`
	PartySize  int       `json:"party_size"`
}

func (h *Handler) ValidatePass(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req validatePassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindingError(c, err)
		return
	}
	if req.PartySize < 1 {
		req.PartySize = 1
	}

	result, err := h.service.ValidatePassUsage(c.Request.Context(), userID, req.PassTypeID, req.LocationID, req.StartAt, req.EndAt, req.PartySize)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Cancel(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	booking, err := h.service.Cancel(c.Request.Context(), userID, bookingID, req.Reason)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *Handler) DiscountHistory(c *gin.Context) {
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}

	entries, err := h.service.DiscountHistory(c.Request.Context(), bookingID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (h *Handler) DiscountSummary(c *gin.Context) {
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}

	summary, err := h.service.DiscountSummary(c.Request.Context(), bookingID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ActivityHistory(c *gin.Context) {
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}

	entries, err := h.service.ActivityHistory(c.Request.Context(), bookingID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

// respondBookingError surfaces the structured detail of seat conflicts and
// seat validation failures; everything else goes through the kind mapping.
func respondBookingError(c *gin.Context, err error) {
	var seatErr *SeatConflictError
	if errors.As(err, &seatErr) {
		api.ErrorWithDetails(c, err, gin.H{
			"conflicting_seats":       seatErr.Seats,
			"confirmed_conflicts":     seatErr.ConfirmedCount,
			"pending_conflicts":       seatErr.PendingCount,
			"requires_seat_selection": seatErr.RequiresSeatSelection,
		})
		return
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		api.ErrorWithDetails(c, err, valErr.Details)
		return
	}

	api.Error(c, err)
}
