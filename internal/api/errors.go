package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/echocrm/internal/app"
	"github.com/lalith-99/echocrm/internal/apperr"
)

// errorBody builds {"error", "code", "fields"} for err. Errors that are not
// *apperr.Error answer 500 with fallback as the message.
func errorBody(err error, fallback string) (int, gin.H) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, gin.H{"error": fallback}
	}
	body := gin.H{"error": ae.Message}
	if ae.Message == "" {
		body["error"] = fallback
	}
	if ae.Kind == apperr.KindAuth && ae.Code != "" {
		body["code"] = ae.Code
	}
	if len(ae.Fields) > 0 {
		body["fields"] = ae.Fields
	}
	return ae.Kind.HTTPStatus(), body
}

func respondError(c *gin.Context, err error, fallback string) {
	status, body := errorBody(err, fallback)
	c.JSON(status, body)
}

func abortWithError(c *gin.Context, err error, fallback string) {
	status, body := errorBody(err, fallback)
	c.AbortWithStatusJSON(status, body)
}

// respondFlash answers a write that produced a flash message.
func respondFlash(c *gin.Context, err error, flash app.Flash) {
	status, body := errorBody(err, flash.Text)
	body["flash"] = flash
	c.JSON(status, body)
}

func badBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}
