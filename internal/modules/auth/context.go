package auth

import "github.com/gin-gonic/gin"

// PrincipalKey is the gin context key the auth middleware stores the
// authenticated Principal under.
const PrincipalKey = "principal"

func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(PrincipalKey, p)
	c.Set("user_id", p.UserID)
	c.Set("role", string(p.Role))
}

func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
