package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Monynha-Softwares/botecopro-sync/realtime"
	"github.com/Monynha-Softwares/botecopro-sync/services"
	"github.com/Monynha-Softwares/botecopro-sync/syncclient"
	"github.com/Monynha-Softwares/botecopro-sync/utils"
)

var (
	ErrMissingCompany = errors.New("company_id is required")
	ErrWrongCompany   = errors.New("token does not grant access to this company")
)

// SyncController exposes the delta-sync protocol endpoints. Responses are
// the raw wire shapes from syncclient, not the dashboard JSON envelope:
// the protocol contract owns these bodies.
type SyncController struct {
	Service *services.SyncService
}

func NewSyncController(db *gorm.DB, maxBatch int) *SyncController {
	return &SyncController{Service: services.NewSyncService(db, maxBatch)}
}

// GetMeta -> GET /sync/meta
func (sc *SyncController) GetMeta(c *gin.Context) {
	c.JSON(http.StatusOK, sc.Service.BuildMeta())
}

// Download -> GET /sync/download?company_id=...&since=...&limit=...
func (sc *SyncController) Download(c *gin.Context) {
	companyID := c.Query("company_id")
	if companyID == "" {
		utils.RespondError(c, http.StatusBadRequest, ErrMissingCompany)
		return
	}
	if !sc.companyAllowed(c, companyID) {
		utils.RespondError(c, http.StatusForbidden, ErrWrongCompany)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		limit = parsed
	}

	resp, err := sc.Service.Download(companyID, c.Query("since"), limit)
	if err != nil {
		if errors.Is(err, services.ErrBadCheckpoint) {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Sync download for company %s: %d rows, nextSince=%s",
		companyID, resp.Count(), resp.NextSince)
	c.JSON(http.StatusOK, resp)
}

// Upload -> POST /sync/upload
func (sc *SyncController) Upload(c *gin.Context) {
	var req syncclient.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.CompanyID == "" {
		utils.RespondError(c, http.StatusBadRequest, ErrMissingCompany)
		return
	}
	if !sc.companyAllowed(c, req.CompanyID) {
		utils.RespondError(c, http.StatusForbidden, ErrWrongCompany)
		return
	}

	resp, err := sc.Service.Upload(&req)
	if err != nil {
		if errors.Is(err, services.ErrBatchTooLarge) {
			utils.RespondError(c, http.StatusRequestEntityTooLarge, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	accepted := 0
	counts := make(map[string]int, len(resp.Accepted))
	for collection, ids := range resp.Accepted {
		if len(ids) > 0 {
			counts[collection] = len(ids)
			accepted += len(ids)
		}
	}
	if accepted > 0 {
		realtime.BroadcastSyncApplied(req.CompanyID, counts)
	}

	utils.InfoLogger.Printf("Sync upload for company %s: %d rows in, batch=%s",
		req.CompanyID, req.Count(), req.BatchID)
	c.JSON(http.StatusOK, resp)
}

// companyAllowed enforces tenancy when a token was presented. Unauthenticated
// requests pass through; the optional-auth middleware already rejected
// malformed tokens.
func (sc *SyncController) companyAllowed(c *gin.Context, companyID string) bool {
	claimed, exists := c.Get("company_id")
	if !exists {
		return true
	}
	return claimed == companyID
}
