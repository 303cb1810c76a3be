package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/utils"
	"gorm.io/gorm"
)

// Cookie names of the two visitor tokens.
const (
	BrowserCookie = "to_browser"
	SessionCookie = "to_session"
)

const (
	ctxStore        = "store"
	ctxSessionStore = "sessionStore"
	ctxVisitorID    = "visitorID"
)

// Namespace prefixes in storage_entries.
const (
	BrowserNamespacePrefix = "browser:"
	SessionNamespacePrefix = "session:"
)

// VisitorSession gives every client the two storage scopes a browser has:
// a persistent one named by a long-lived cookie and a session one named by a
// cookie without expiry. Missing or invalid cookies are replaced.
func VisitorSession(signer *utils.TokenSigner, db *gorm.DB, maxValueBytes int, browserMaxAge int) gin.HandlerFunc {
	return func(c *gin.Context) {
		browserID, err := visitorID(c, signer, BrowserCookie, utils.ScopeBrowser, browserMaxAge)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			c.Abort()
			return
		}
		sessionID, err := visitorID(c, signer, SessionCookie, utils.ScopeSession, 0)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			c.Abort()
			return
		}

		local := database.NewGormStore(db, BrowserNamespacePrefix+browserID)
		session := database.NewGormStore(db, SessionNamespacePrefix+sessionID)
		if maxValueBytes > 0 {
			local.MaxValueBytes = maxValueBytes
			session.MaxValueBytes = maxValueBytes
		}

		c.Set(ctxVisitorID, browserID)
		c.Set(ctxStore, database.Store(local))
		c.Set(ctxSessionStore, database.Store(session))
		c.Next()
	}
}

func visitorID(c *gin.Context, signer *utils.TokenSigner, cookie, scope string, maxAge int) (string, error) {
	if raw, err := c.Cookie(cookie); err == nil && raw != "" {
		if claims, err := signer.Parse(raw, scope); err == nil {
			return claims.VisitorID, nil
		}
		utils.InfoLogger.Printf("Replacing invalid %s cookie from %s", cookie, c.ClientIP())
	}

	token, claims, err := signer.Issue(scope)
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookie, token, maxAge, "/", "", false, true)
	// later handlers in this request read the cookie back
	c.Request.AddCookie(&http.Cookie{Name: cookie, Value: token})
	return claims.VisitorID, nil
}

// StoreFrom returns the persistent store of the visitor.
func StoreFrom(c *gin.Context) database.Store {
	if v, ok := c.Get(ctxStore); ok {
		if s, ok := v.(database.Store); ok {
			return s
		}
	}
	return nil
}

// SessionStoreFrom returns the session-scoped store of the visitor.
func SessionStoreFrom(c *gin.Context) database.Store {
	if v, ok := c.Get(ctxSessionStore); ok {
		if s, ok := v.(database.Store); ok {
			return s
		}
	}
	return nil
}

func VisitorIDFrom(c *gin.Context) string {
	return c.GetString(ctxVisitorID)
}
