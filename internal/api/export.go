package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const exportRowLimit = 50000

// ExportStashData writes the filtered search results as an xlsx download.
// Same filters as the search page, capped at exportRowLimit rows.
func (h *APIHandler) ExportStashData(c *gin.Context) {
	rows, err := h.engine.ExportRows(tableFiltersFromQuery(c), exportRowLimit)
	if err != nil {
		h.renderQueryError(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Stash Events"
	f.SetSheetName("Sheet1", sheet)

	header := []interface{}{"Date", "OP ID", "League", "Account", "Action", "Stash", "Item", "Count"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export", "details": err.Error()})
		return
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export", "details": err.Error()})
			return
		}
		values := []interface{}{row.Date, row.OpID, row.League, row.Account, row.Action, row.Stash, row.Item, row.ItemCount}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export", "details": err.Error()})
			return
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "stash_events.xlsx"))
	if err := f.Write(c.Writer); err != nil {
		// Headers already sent; nothing useful left to tell the client.
		log.Printf("Failed to stream xlsx export: %v", err)
	}
}
