package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	TravelOptionID int64    `json:"travel_option_id"`
	Seats          int      `json:"number_of_seats"`
	PassengerNames []string `json:"passenger_names"`
	TermsAccepted  bool     `json:"terms_accepted"`
}

type cancelBookingRequest struct {
	Confirm bool `json:"confirm"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register expects an authenticated group.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.POST("/:id/cancel", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		UserID:         principal.UserID,
		TravelOptionID: req.TravelOptionID,
		Seats:          req.Seats,
		PassengerNames: req.PassengerNames,
		TermsAccepted:  req.TermsAccepted,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(*created))
}

func (h *BookingHandler) list(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}

	bookings, err := h.service.ListBookings(c.Request.Context(), principal.UserID, domain.BookingStatus(c.Query("status")))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingResponse(b))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) get(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	details, err := h.service.GetBooking(c.Request.Context(), principal.UserID, id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookingDetailsResponse{
		bookingResponse: toBookingResponse(details.Booking),
		TravelOption:    toTravelOptionResponse(details.TravelOption),
		CanCancel:       details.CanCancel,
	})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	var req cancelBookingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, bindError(err))
			return
		}
	}

	cancelled, err := h.service.CancelBooking(c.Request.Context(), booking.CancelBookingInput{
		UserID:    principal.UserID,
		BookingID: id,
		Confirmed: req.Confirm,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(*cancelled))
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		// unparseable ids cannot exist
		writeError(c, domain.ErrBookingNotFound)
		return 0, false
	}
	return id, true
}
