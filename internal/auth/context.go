package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxOwnerID = "owner_id"

// OwnerID returns the identity set by the auth middleware, or "".
func OwnerID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxOwnerID))
}
