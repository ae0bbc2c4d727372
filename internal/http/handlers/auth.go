package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/middleware"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/response"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/dbctx"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/services"
)

type CookieConfig struct {
	Secure bool
	Domain string
}

type AuthHandler struct {
	authService services.AuthService
	userService services.UserService
	cookie      CookieConfig
}

func NewAuthHandler(authService services.AuthService, userService services.UserService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService, cookie: cookie}
}

// POST /api/auth/google
// body: { "idToken": "..." }
func (ah *AuthHandler) GoogleSignIn(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	if !bindJSON(c, "", &req) {
		return
	}
	res, err := ah.authService.SignInWithGoogle(c.Request.Context(), req.IDToken)
	if err != nil {
		response.RespondErr(c, "Falha ao entrar com Google", err)
		return
	}
	ah.setSessionCookie(c, res.Token, int(ah.authService.TokenTTL().Seconds()))
	response.RespondOK(c, gin.H{
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
		"user":      services.NewUserProfile(res.User),
	})
}

// POST /api/auth/logout
func (ah *AuthHandler) Logout(c *gin.Context) {
	ah.setSessionCookie(c, "", -1)
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/auth/user
func (ah *AuthHandler) GetUser(c *gin.Context) {
	me, err := ah.userService.GetMe(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondErr(c, "", err)
		return
	}
	response.RespondOK(c, me)
}

func (ah *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", ah.cookie.Domain, ah.cookie.Secure, true)
}
