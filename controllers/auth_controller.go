package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/config"
	"github.com/esa0624/CU-Blueboard/models"
	"github.com/esa0624/CU-Blueboard/services"
	"github.com/esa0624/CU-Blueboard/utils"
)

const tokenLifetime = 72 * time.Hour

// AuthController handles registration, login and Google OAuth for campus
// accounts. Every path runs through the identity policy so only approved
// email domains get in.
type AuthController struct {
	db     *gorm.DB
	policy services.IdentityPolicy
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, policy services.IdentityPolicy) *AuthController {
	return &AuthController{db: db, policy: policy}
}

// Register creates a local account for an approved campus email.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !a.policy.EmailAllowed(email) {
		utils.Error(ctx, http.StatusForbidden, 40302, "email domain is not eligible for an account")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to process password")
		return
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Provider:     "local",
		Role:         a.policy.RoleFor(email),
	}
	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "Duplicate entry") {
			utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create account")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": userPayload(user)})
}

// Login verifies credentials and issues a JWT. The moderator allowlist is
// consulted on every login so role changes take effect immediately.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid request payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid email or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid email or password")
		return
	}

	a.syncRole(&user)

	token, err := utils.GenerateToken(user.ID, user.Email, tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": userPayload(user)})
}

// Logout blacklists the current token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	token := strings.TrimSpace(parts[1])
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(tokenLifetime)
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	var user models.User
	if err := a.db.First(&user, ctx.GetUint("user_id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, userPayload(user))
}

// OAuthRedirect generates the Google authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := a.oauthConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a Google identity,
// enforces the campus email policy and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := a.oauthConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	token, err := cfg.Exchange(context.Background(), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	identity, err := fetchGoogleUser(token)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50210, "failed to fetch user profile")
		return
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if !a.policy.EmailAllowed(email) {
		utils.Error(ctx, http.StatusForbidden, 40302, "email domain is not eligible for an account")
		return
	}

	user, err := a.findOrCreateOAuthUser(identity, email)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to record user")
		return
	}

	jwtToken, err := utils.GenerateToken(user.ID, user.Email, tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"token": jwtToken, "user": userPayload(*user)})
}

func (a *AuthController) oauthConfig() (*oauth2.Config, error) {
	cfg := config.Get()
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil, fmt.Errorf("google oauth not configured")
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", cfg.OAuthRedirectBase),
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}, nil
}

type googleIdentity struct {
	ID    string
	Email string
}

func fetchGoogleUser(token *oauth2.Token) (*googleIdentity, error) {
	req, _ := http.NewRequest("GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token.AccessToken))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &googleIdentity{ID: payload.ID, Email: payload.Email}, nil
}

func (a *AuthController) findOrCreateOAuthUser(identity *googleIdentity, email string) (*models.User, error) {
	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", "google", identity.ID).First(&user).Error
	if err == nil {
		a.syncRole(&user)
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// A local account with the same email becomes the OAuth account.
	err = a.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		user.Provider = "google"
		user.ProviderID = identity.ID
		a.syncRole(&user)
		if err := a.db.Save(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Email:      email,
		Provider:   "google",
		ProviderID: identity.ID,
		Role:       a.policy.RoleFor(email),
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// syncRole re-checks the moderator allowlist and persists a changed role.
func (a *AuthController) syncRole(user *models.User) {
	role := a.policy.RoleFor(user.Email)
	if role != user.Role {
		user.Role = role
		_ = a.db.Model(user).Update("role", role).Error
	}
}

func userPayload(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"role":       user.Role.String(),
		"provider":   user.Provider,
		"created_at": user.CreatedAt,
	}
}
