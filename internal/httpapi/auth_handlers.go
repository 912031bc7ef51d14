package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const oauthStateCookie = "oauth_state"

type signUpRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	ctx := c.Request.Context()
	if _, err := s.auth.SignUp(ctx, req.Email, req.Password, req.FullName); err != nil {
		s.respondError(c, err)
		return
	}
	creds, err := s.auth.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, creds)
}

func (s *Server) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	creds, err := s.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, creds)
}

// signOut closes the session only once the token is revoked.
func (s *Server) signOut(c *gin.Context) {
	if err := s.auth.SignOut(c.Request.Context(), c.GetString(ctxToken)); err != nil {
		s.respondError(c, err)
		return
	}
	if user := currentSession(c).CurrentUser(); user != nil {
		s.sessions.Close(user.ID)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentSession(c).CurrentUser())
}

func (s *Server) oauthStart(c *gin.Context) {
	state := uuid.NewString()
	url, err := s.auth.OAuthURL(c.Param("provider"), state)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/auth/oauth", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, url)
}

func (s *Server) oauthCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		s.respondError(c, fmt.Errorf("%w: oauth state mismatch", errBadRequest))
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/auth/oauth", "", c.Request.TLS != nil, true)

	code := c.Query("code")
	if code == "" {
		s.respondError(c, fmt.Errorf("%w: missing code", errBadRequest))
		return
	}
	creds, err := s.auth.OAuthSignIn(c.Request.Context(), c.Param("provider"), code)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, creds)
}

func (s *Server) requestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := s.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "if the address is registered, a reset link has been sent"})
}

func (s *Server) confirmPasswordReset(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := s.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) telegramLink(c *gin.Context) {
	user := currentSession(c).CurrentUser()
	code, err := s.auth.IssueLinkCode(c.Request.Context(), user.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":        code,
		"instruction": "send /link " + code + " to the bot",
	})
}
