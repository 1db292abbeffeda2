package api

import (
	"encoding/json"
	"net/http"
	"time"

	"dailymind-api/internal/database"
	"dailymind-api/internal/response"
	"dailymind-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

const statsCacheKey = "subscription_stats"

// PollSubscriptions runs one poll cycle outside the regular schedule and
// waits for it to finish, so admins see the outcome in the response.
func PollSubscriptions(c *gin.Context) {
	if err := deps.Poller.RunCycle(c.Request.Context()); err != nil {
		logging.Errorf("Manual poll cycle failed: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Poll cycle failed")
		return
	}

	response.SuccessJSON(c, gin.H{"message": "Poll cycle completed"})
}

// GetSubscriptionStats returns aggregate subscription counts, cached briefly
// so dashboards can refresh without hammering the database.
func GetSubscriptionStats(c *gin.Context) {
	ctx := c.Request.Context()

	if cached, err := database.GetCache(ctx, statsCacheKey); err == nil && cached != "" {
		var stats database.SubscriptionStats
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			response.SuccessJSON(c, stats)
			return
		}
	}

	stats, err := database.GetSubscriptionStats()
	if err != nil {
		logging.Errorf("Failed to compute subscription stats: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to compute subscription stats")
		return
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := database.SetCache(ctx, statsCacheKey, string(data), 60*time.Second); err != nil {
			logging.Warnf("Failed to cache subscription stats: %v", err)
		}
	}

	response.SuccessJSON(c, stats)
}
