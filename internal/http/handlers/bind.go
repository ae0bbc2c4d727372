package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/response"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/apierr"
)

// bindJSON decodes the body into dst and writes the error response on
// failure. Bodies cut off by the body limit get 413.
func bindJSON(c *gin.Context, headline string, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	response.RespondErr(c, headline, apierr.Invalid("%v", err))
	return false
}
