package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yuxishi/aws-quota-compare/internal/model"
)

// ExportJSON runs the comparison from query parameters and returns the diff
// as a downloadable JSON document.
func (h *Handler) ExportJSON(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.runCompare(c, req)
	if err != nil {
		h.fetchError(c, err)
		return
	}

	filename := fmt.Sprintf("quota-diff-%s.json", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.JSON(http.StatusOK, resp)
}

// ExportCSV is ExportJSON's flat-file sibling, one row per diff entry.
func (h *Handler) ExportCSV(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.runCompare(c, req)
	if err != nil {
		h.fetchError(c, err)
		return
	}

	filename := fmt.Sprintf("quota-diff-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{
		"Service", "Quota Name", "Status", "Source Value", "Destination Value",
		"Delta", "Unit", "Adjustable", "ServiceCode", "QuotaCode",
	})
	for _, e := range resp.Entries {
		destValue := ""
		delta := ""
		if e.Status != model.DiffSourceOnly && e.Destination != nil {
			destValue = formatValue(e.Destination.Value)
			delta = formatValue(e.Delta)
		}
		_ = w.Write([]string{
			e.ServiceName,
			e.QuotaName,
			string(e.Status),
			formatValue(e.Source.Value),
			destValue,
			delta,
			e.Unit,
			strconv.FormatBool(e.Adjustable),
			e.ServiceCode,
			e.QuotaCode,
		})
	}
	w.Flush()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
