package handlers

import (
	"net/http"
	"strconv"

	"rainet_server/internal/repository"

	"github.com/gin-gonic/gin"
)

// Leaderboard serves the top ratings. Without a database-backed store
// (open mode) there is nothing durable to rank, so it 404s.
func Leaderboard(users *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if users == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "leaderboard disabled"})
			return
		}

		limit := 20
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		top, err := users.GetTopByRating(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"players": top})
	}
}
