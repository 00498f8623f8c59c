package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
	"github.com/esa0624/CU-Blueboard/utils"
)

const (
	// ContextUserKey stores the loaded user record for moderator routes.
	ContextUserKey = "current_user"
)

// ModeratorRequired loads the authenticated user and rejects the request
// unless the user holds a moderation role. The role comes from the database
// on every request so a demoted moderator loses access immediately.
func ModeratorRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID := ctx.GetUint(ContextUserIDKey)
		if userID == 0 {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "authentication required")
			ctx.Abort()
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40107, "user not found")
			ctx.Abort()
			return
		}

		if !user.CanModerate() {
			utils.Error(ctx, http.StatusForbidden, 40301, "moderator access required")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserKey, &user)
		ctx.Next()
	}
}

// CurrentUser fetches the authenticated user record. Returns nil when the
// request is unauthenticated.
func CurrentUser(ctx *gin.Context, db *gorm.DB) *models.User {
	if u, ok := ctx.Get(ContextUserKey); ok {
		if user, ok := u.(*models.User); ok {
			return user
		}
	}
	userID := ctx.GetUint(ContextUserIDKey)
	if userID == 0 {
		return nil
	}
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return nil
	}
	return &user
}
