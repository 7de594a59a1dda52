package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yuxishi/aws-quota-compare/internal/aws"
	"github.com/yuxishi/aws-quota-compare/internal/compare"
	"github.com/yuxishi/aws-quota-compare/internal/model"
	"github.com/yuxishi/aws-quota-compare/internal/orchestrator"
	"github.com/yuxishi/aws-quota-compare/internal/store"
)

type Handler struct {
	orch    *orchestrator.Orchestrator
	fetcher *aws.QuotaFetcher
	tracker *aws.RequestTracker
	store   store.Store
	epsilon float64
	log     zerolog.Logger
}

func New(orch *orchestrator.Orchestrator, fetcher *aws.QuotaFetcher, tracker *aws.RequestTracker, st store.Store, epsilon float64, log zerolog.Logger) *Handler {
	return &Handler{
		orch:    orch,
		fetcher: fetcher,
		tracker: tracker,
		store:   st,
		epsilon: epsilon,
		log:     log,
	}
}

type CompareRequest struct {
	SourceProfile    string `json:"source_profile" form:"source_profile" binding:"required"`
	SourceRegion     string `json:"source_region" form:"source_region" binding:"required"`
	DestProfile      string `json:"dest_profile" form:"dest_profile" binding:"required"`
	DestRegion       string `json:"dest_region" form:"dest_region" binding:"required"`
	BypassCache      bool   `json:"bypass_cache" form:"bypass_cache"`
	SuppressDefaults bool   `json:"suppress_defaults" form:"suppress_defaults"`
}

type SideInfo struct {
	AccountID string    `json:"account_id"`
	Profile   string    `json:"profile"`
	Region    string    `json:"region"`
	Quotas    int       `json:"quotas"`
	FetchedAt time.Time `json:"fetched_at"`
	FromCache bool      `json:"from_cache"`
}

type CompareResponse struct {
	Source      SideInfo          `json:"source"`
	Destination SideInfo          `json:"destination"`
	Entries     []model.DiffEntry `json:"entries"`
	Summary     model.DiffSummary `json:"summary"`
}

func (h *Handler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.runCompare(c, req)
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) runCompare(c *gin.Context, req CompareRequest) (*CompareResponse, error) {
	src, dst, err := h.orch.GetCatalogs(c.Request.Context(),
		orchestrator.Side{Profile: req.SourceProfile, Region: req.SourceRegion},
		orchestrator.Side{Profile: req.DestProfile, Region: req.DestRegion},
		req.BypassCache)
	if err != nil {
		return nil, err
	}

	result := compare.Compare(src.Catalog, dst.Catalog, compare.Options{
		SuppressDefaults: req.SuppressDefaults,
		Epsilon:          h.epsilon,
	})

	return &CompareResponse{
		Source:      sideInfo(req.SourceProfile, src),
		Destination: sideInfo(req.DestProfile, dst),
		Entries:     result.Entries,
		Summary:     result.Summary,
	}, nil
}

func sideInfo(profile string, res orchestrator.SideResult) SideInfo {
	return SideInfo{
		AccountID: res.Catalog.AccountID,
		Profile:   profile,
		Region:    res.Catalog.Region,
		Quotas:    len(res.Catalog.Records),
		FetchedAt: res.FetchedAt,
		FromCache: res.FromCache,
	}
}

func (h *Handler) GetRegions(c *gin.Context) {
	profile := c.Query("profile")
	regions, err := aws.ListRegions(c.Request.Context(), profile)
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"regions": regions})
}

func (h *Handler) ListCache(c *gin.Context) {
	keys, err := h.store.Keys(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": keys, "total": len(keys)})
}

func (h *Handler) ClearCache(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared successfully"})
}

func (h *Handler) DeleteCacheEntry(c *gin.Context) {
	key := model.CacheKey{AccountID: c.Param("account"), Region: c.Param("region")}
	if err := h.store.Delete(c.Request.Context(), key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cache entry removed", "key": key.String()})
}

type SubmitRequest struct {
	Profile string             `json:"profile" binding:"required"`
	Region  string             `json:"region" binding:"required"`
	Items   []aws.IncreaseItem `json:"items" binding:"required"`
}

func (h *Handler) SubmitRequests(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no items to submit"})
		return
	}

	results, err := h.tracker.SubmitBatch(c.Request.Context(), req.Profile, req.Region, req.Items)
	if err != nil {
		h.fetchError(c, err)
		return
	}

	submitted := 0
	for _, r := range results {
		if r.Error == "" {
			submitted++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"total":     len(results),
		"submitted": submitted,
	})
}

func (h *Handler) ListRequests(c *gin.Context) {
	profile := c.Query("profile")
	region := c.Query("region")
	if region == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region is required"})
		return
	}

	ids, err := h.tracker.ListRequestIDs(c.Request.Context(), profile, region)
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_ids": ids, "total": len(ids)})
}

func (h *Handler) RequestStatus(c *gin.Context) {
	profile := c.Query("profile")
	region := c.Query("region")
	id := c.Param("id")
	if region == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region is required"})
		return
	}

	req, err := h.tracker.PollStatus(c.Request.Context(), profile, region, id)
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) GetUsage(c *gin.Context) {
	profile := c.Query("profile")
	region := c.Query("region")
	serviceCode := c.Query("service")
	quotaCode := c.Query("quota")
	if region == "" || serviceCode == "" || quotaCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region, service and quota are required"})
		return
	}

	info, err := h.fetcher.UsageContext(c.Request.Context(), profile, region, serviceCode, quotaCode)
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// fetchError maps domain errors onto HTTP statuses.
func (h *Handler) fetchError(c *gin.Context, err error) {
	var sideErr *orchestrator.SideError
	switch {
	case errors.Is(err, aws.ErrAuth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &sideErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  sideErr.Error(),
			"side":   sideErr.Side,
			"region": sideErr.Region,
		})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
