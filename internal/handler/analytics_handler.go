package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCompanyAnalytics 返回业体维度的访问统计。
func (a *API) GetCompanyAnalytics(c *gin.Context) {
	analytics, err := a.analytics.CompanyAnalytics()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to aggregate company analytics")
		return
	}

	response := make([]gin.H, 0, len(analytics))
	for _, entry := range analytics {
		item := gin.H{
			"company":          entry.Company,
			"visit_count":      entry.VisitCount,
			"current_visitors": entry.CurrentOpenCount,
			"total_duration":   entry.TotalDurationSeconds,
			"longest_visit":    nil,
		}
		if entry.Longest != nil {
			item["longest_visit"] = gin.H{
				"name":     entry.Longest.Name,
				"position": entry.Longest.Position,
				"duration": entry.Longest.DurationSeconds,
			}
		}
		response = append(response, item)
	}

	c.JSON(http.StatusOK, response)
}

// GetPurposeRanking 返回到访目的出现次数前五名。
func (a *API) GetPurposeRanking(c *gin.Context) {
	ranking, err := a.analytics.PurposeRanking()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to rank purposes")
		return
	}

	response := make([]gin.H, 0, len(ranking))
	for _, entry := range ranking {
		response = append(response, gin.H{
			"visit_purpose": entry.Purpose,
			"visit_count":   entry.VisitCount,
		})
	}

	c.JSON(http.StatusOK, response)
}
