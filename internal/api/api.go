package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"stash-tracker/internal/analytics"
	"stash-tracker/internal/config"
	"stash-tracker/internal/ingest"
	"stash-tracker/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type APIHandler struct {
	cfg    *config.Config
	events *store.EventStore
	engine *analytics.Engine
	hub    *Hub
}

func SetupRoutes(r *gin.RouterGroup, db *gorm.DB, cfg *config.Config, hub *Hub) *APIHandler {
	handler := &APIHandler{
		cfg:    cfg,
		events: store.NewEventStore(db),
		engine: analytics.NewEngine(db, cfg),
		hub:    hub,
	}

	r.POST("/upload", handler.UploadCSV)

	charts := r.Group("/charts")
	{
		charts.GET("/top-users", handler.GetTopUsers)
		charts.GET("/user-ratios", handler.GetUserRatios)
		charts.GET("/activity", handler.GetActivity)
	}

	r.GET("/accounts/stats", handler.GetAccountStats)
	r.GET("/stash-data", handler.GetStashData)
	r.GET("/stash-data/export", handler.ExportStashData)
	r.GET("/config/leagues", handler.GetLeagues)

	return handler
}

// UploadCSV ingests one CSV export: normalize, drop and sample invalid rows,
// then store the rest idempotently.
func (h *APIHandler) UploadCSV(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file", "details": err.Error()})
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file", "details": err.Error()})
		return
	}

	result, err := ingest.Normalize(string(content))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse CSV", "details": err.Error()})
		return
	}

	if len(result.Valid) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           "no valid records found in CSV",
			"total":           result.Total,
			"invalid":         result.InvalidCount,
			"invalid_samples": result.InvalidSamples,
		})
		return
	}

	summary, err := h.events.InsertEvents(result.Valid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store events", "details": err.Error()})
		return
	}

	h.hub.Broadcast(gin.H{
		"type":       "upload",
		"total":      result.Total,
		"inserted":   summary.Inserted,
		"duplicates": summary.Duplicates,
		"invalid":    result.InvalidCount,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"total":           result.Total,
		"inserted":        summary.Inserted,
		"duplicates":      summary.Duplicates,
		"invalid":         result.InvalidCount,
		"invalid_samples": result.InvalidSamples,
	})
}

func (h *APIHandler) GetTopUsers(c *gin.Context) {
	action := c.DefaultQuery("action", "added")

	results, err := h.engine.TopUsers(action, filtersFromQuery(c))
	if err != nil {
		h.renderQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

func (h *APIHandler) GetUserRatios(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	order := c.DefaultQuery("order", "desc")

	results, err := h.engine.UserRatios(filtersFromQuery(c), limit, order)
	if err != nil {
		h.renderQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

func (h *APIHandler) GetActivity(c *gin.Context) {
	timeSlice := c.DefaultQuery("timeSlice", "day")

	filters := filtersFromQuery(c)
	if filters.TimeRange == "" {
		filters.TimeRange = "30d"
	}

	results, err := h.engine.ActivityByTimeSegment(timeSlice, filters)
	if err != nil {
		h.renderQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

func (h *APIHandler) GetAccountStats(c *gin.Context) {
	account := strings.TrimSpace(c.Query("account"))
	league := strings.TrimSpace(c.Query("league"))
	dateRange := c.Query("dateRange")

	if account == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account is required"})
		return
	}

	stats, err := h.engine.AccountStats(account, league, dateRange)
	if err != nil {
		h.renderQueryError(c, err)
		return
	}
	// stats is null when the account has no rows in this league at all.
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *APIHandler) GetStashData(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "25"))

	result, err := h.engine.TableData(tableFiltersFromQuery(c), page, pageSize)
	if err != nil {
		h.renderQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) GetLeagues(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"leagues": h.cfg.LeagueList})
}

func filtersFromQuery(c *gin.Context) analytics.Filters {
	return analytics.Filters{
		TimeRange:                c.Query("timeRange"),
		League:                   strings.TrimSpace(c.Query("league")),
		ExcludeSystemAccounts:    strings.ToLower(c.Query("excludeSystemAccounts")) == "true",
		ExcludeCommunityAccounts: strings.ToLower(c.Query("excludeCommunityAccounts")) == "true",
	}
}

func tableFiltersFromQuery(c *gin.Context) analytics.TableFilters {
	return analytics.TableFilters{
		Account: strings.TrimSpace(c.Query("account")),
		Stash:   strings.TrimSpace(c.Query("stash")),
		Item:    strings.TrimSpace(c.Query("item")),
		Action:  strings.TrimSpace(c.Query("action")),
		League:  strings.TrimSpace(c.Query("league")),
	}
}

// renderQueryError keeps the two failure modes apart: a bad parameter is the
// caller's problem, anything else is ours.
func (h *APIHandler) renderQueryError(c *gin.Context, err error) {
	var paramErr *analytics.ParamError
	if errors.As(err, &paramErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": paramErr.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed", "details": err.Error()})
}
