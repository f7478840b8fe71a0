package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/service/travel"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type TravelHandler struct {
	service travel.TravelUseCase
}

type searchRequest struct {
	Source        string `form:"source"`
	Destination   string `form:"destination"`
	Type          string `form:"travel_type" binding:"omitempty,oneof=flight train bus"`
	DepartureDate string `form:"departure_date"`
}

type createTravelOptionRequest struct {
	Type        string          `json:"travel_type" binding:"required"`
	Source      string          `json:"source" binding:"required"`
	Destination string          `json:"destination" binding:"required"`
	DepartureAt time.Time       `json:"departure_datetime" binding:"required"`
	ArrivalAt   time.Time       `json:"arrival_datetime" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	TotalSeats  int             `json:"total_seats" binding:"required"`
	Operator    string          `json:"operator"`
}

func NewTravelHandler(service travel.TravelUseCase) *TravelHandler {
	return &TravelHandler{service: service}
}

func (h *TravelHandler) Register(public, staff *gin.RouterGroup) {
	public.GET("/travel-options", h.search)
	public.GET("/travel-options/:id", h.get)
	public.GET("/cities", h.cities)
	staff.POST("/travel-options", h.create)
}

func (h *TravelHandler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	filter := domain.TravelSearch{
		Source:      req.Source,
		Destination: req.Destination,
		Type:        domain.TravelType(req.Type),
	}
	if req.DepartureDate != "" {
		date, err := time.Parse(time.DateOnly, req.DepartureDate)
		if err != nil {
			var errs domain.ValidationErrors
			errs.Add("departure_date", "use YYYY-MM-DD")
			writeError(c, errs)
			return
		}
		filter.DepartureDate = date
	}

	options, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]travelOptionResponse, 0, len(options))
	for _, o := range options {
		resp = append(resp, toTravelOptionResponse(o))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TravelHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, domain.ErrTravelOptionNotFound)
		return
	}

	option, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTravelOptionResponse(*option))
}

func (h *TravelHandler) cities(c *gin.Context) {
	cities, err := h.service.Cities(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

func (h *TravelHandler) create(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}

	var req createTravelOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	option, err := h.service.Create(c.Request.Context(), principal, domain.CreateTravelOptionInput{
		Type:        domain.TravelType(req.Type),
		Source:      req.Source,
		Destination: req.Destination,
		DepartureAt: req.DepartureAt,
		ArrivalAt:   req.ArrivalAt,
		Price:       req.Price,
		TotalSeats:  req.TotalSeats,
		Operator:    req.Operator,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTravelOptionResponse(*option))
}
