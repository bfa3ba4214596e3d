package analyses

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"biotech-backend/internal/shared/server/respond"
)

// Handler exposes analysis endpoints.
type Handler struct {
	Service *Service
}

// RegisterRoutes mounts the analysis routes on the group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/analyses", h.start)
	group.GET("/analyses/:id", h.get)
	group.GET("/analyses/:id/status", h.status)
	group.GET("/companies/:id/analyses", h.listForCompany)
}

// RegisterDevRoutes mounts maintenance routes that are only exposed in
// dev-like environments.
func (h *Handler) RegisterDevRoutes(group *gin.RouterGroup) {
	group.POST("/analyses/fail-stuck", h.failStuck)
}

type startAnalysisRequest struct {
	CompanyID string   `json:"companyId"`
	Filings   []string `json:"filings"`
}

func (h *Handler) start(c *gin.Context) {
	var req startAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}
	if req.CompanyID == "" {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "companyId is required", nil)
		return
	}

	analysis, err := h.Service.Start(c.Request.Context(), req.CompanyID, req.Filings)
	if err != nil {
		h.respondStartError(c, err)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{
		"analysisId": analysis.ID,
		"status":     analysis.Status,
	})
}

func (h *Handler) respondStartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrTickerMissing):
		respond.Error(c, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	case errors.Is(err, ErrCompanyNotFound):
		respond.Error(c, http.StatusNotFound, CodeNotFound, "company not found", nil)
	case errors.Is(err, ErrResolutionFailed):
		respond.Error(c, http.StatusNotFound, CodeResolution, "ticker could not be resolved to a filer identifier", nil)
	case errors.Is(err, ErrUpstreamUnavailable):
		respond.Error(c, http.StatusBadGateway, CodeUpstream, "filer identifier directory is unavailable", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, CodeInternal, "failed to start analysis", nil)
	}
}

func (h *Handler) get(c *gin.Context) {
	analysis, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, CodeNotFound, "analysis not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, CodeInternal, "failed to load analysis", nil)
		return
	}
	respond.OK(c, analysis)
}

func (h *Handler) status(c *gin.Context) {
	snapshot, err := h.Service.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, CodeNotFound, "analysis not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, CodeInternal, "failed to load analysis status", nil)
		return
	}
	respond.OK(c, snapshot)
}

func (h *Handler) listForCompany(c *gin.Context) {
	out, err := h.Service.ListForCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrCompanyNotFound) {
			respond.Error(c, http.StatusNotFound, CodeNotFound, "company not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, CodeInternal, "failed to list analyses", nil)
		return
	}
	respond.OK(c, gin.H{"analyses": out, "count": len(out)})
}

type failStuckRequest struct {
	OlderThanMinutes int `json:"olderThanMinutes"`
}

func (h *Handler) failStuck(c *gin.Context) {
	req := failStuckRequest{OlderThanMinutes: 60}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
			return
		}
	}
	if req.OlderThanMinutes <= 0 {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "olderThanMinutes must be positive", nil)
		return
	}

	count, err := h.Service.FailStuck(c.Request.Context(), time.Duration(req.OlderThanMinutes)*time.Minute)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, CodeInternal, "failed to reclaim stuck analyses", nil)
		return
	}
	respond.OK(c, gin.H{"failed": count})
}
