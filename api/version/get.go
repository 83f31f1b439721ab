package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Get handles version requests
func Get(version string) gin.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "Audio Recap API",
			"version":     version,
			"description": "Summarizes recorded audio and answers follow-up questions about it",
			"status":      "running",
		})
	}
}
