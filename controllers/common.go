package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
)

var ErrNoPermission = errors.New("you do not have permission for this action")

// companyFrom returns the company bound to the request's token. Handlers
// under the authenticated group can rely on it being present.
func companyFrom(c *gin.Context) (string, bool) {
	claimed, exists := c.Get("company_id")
	if !exists {
		return "", false
	}
	companyID, ok := claimed.(string)
	return companyID, ok && companyID != ""
}
