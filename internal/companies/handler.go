package companies

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biotech-backend/internal/shared/server/respond"
)

// Handler exposes company endpoints.
type Handler struct {
	Service *Service
}

// RegisterRoutes mounts the company routes on the group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/companies", h.create)
	group.GET("/companies", h.list)
	group.GET("/companies/:id", h.get)
	group.PUT("/companies/:id", h.update)
	group.POST("/companies/import", h.importCSV)
}

type createCompanyRequest struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`

	Sector   *string `json:"sector"`
	Industry *string `json:"industry"`
	Country  *string `json:"country"`
	Exchange *string `json:"exchange"`
	Website  *string `json:"website"`

	MarketCap    *float64 `json:"marketCap"`
	Employees    *int     `json:"employees"`
	TotalRevenue *float64 `json:"totalRevenue"`
	CurrentPrice *float64 `json:"currentPrice"`
}

func (h *Handler) create(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	if req.Ticker == "" || req.Name == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "ticker and name are required", nil)
		return
	}

	company, err := h.Service.Create(c.Request.Context(), CreateInput{
		Ticker:       req.Ticker,
		Name:         req.Name,
		Sector:       req.Sector,
		Industry:     req.Industry,
		Country:      req.Country,
		Exchange:     req.Exchange,
		Website:      req.Website,
		MarketCap:    req.MarketCap,
		Employees:    req.Employees,
		TotalRevenue: req.TotalRevenue,
		CurrentPrice: req.CurrentPrice,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateTicker) {
			respond.Error(c, http.StatusConflict, "duplicate_ticker", "a company with this ticker already exists", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create company", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, company)
}

func (h *Handler) get(c *gin.Context) {
	company, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "company not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load company", nil)
		return
	}
	respond.OK(c, company)
}

type updateCompanyRequest struct {
	Name *string `json:"name"`

	Sector   *string `json:"sector"`
	Industry *string `json:"industry"`
	Country  *string `json:"country"`
	Exchange *string `json:"exchange"`
	Website  *string `json:"website"`

	MarketCap    *float64 `json:"marketCap"`
	Employees    *int     `json:"employees"`
	TotalRevenue *float64 `json:"totalRevenue"`
	CurrentPrice *float64 `json:"currentPrice"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	company, err := h.Service.Update(c.Request.Context(), c.Param("id"), UpdateInput{
		Name:         req.Name,
		Sector:       req.Sector,
		Industry:     req.Industry,
		Country:      req.Country,
		Exchange:     req.Exchange,
		Website:      req.Website,
		MarketCap:    req.MarketCap,
		Employees:    req.Employees,
		TotalRevenue: req.TotalRevenue,
		CurrentPrice: req.CurrentPrice,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "company not found", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	respond.OK(c, company)
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	out, err := h.Service.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list companies", nil)
		return
	}
	respond.OK(c, gin.H{"companies": out, "count": len(out)})
}

func (h *Handler) importCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart file field 'file' is required", nil)
		return
	}
	defer file.Close()

	result, err := h.Service.ImportCSV(c.Request.Context(), file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	respond.OK(c, result)
}
