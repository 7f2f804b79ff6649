package auth

import (
	"errors"
	"io"

	"github.com/NordCoder/firmbook/internal/apperr"
	"github.com/NordCoder/firmbook/internal/requestctx"
	"github.com/NordCoder/firmbook/internal/services/api/httpx"
	"github.com/gin-gonic/gin"
)

type Server struct {
	uc   *Usecase
	resp *httpx.Responder
}

func NewServer(uc *Usecase, resp *httpx.Responder) *Server {
	return &Server{uc: uc, resp: resp}
}

// Register mounts the auth routes on g. The gateway middleware must already
// run on the enclosing router.
func (s *Server) Register(g *gin.RouterGroup) {
	a := g.Group("/auth")
	a.POST("/register", s.register)
	a.POST("/login", s.login)
	a.POST("/refresh", s.refresh)
	a.POST("/logout", s.logout)
	a.GET("/me", RequireAuth(s.resp), s.me)
}

func (s *Server) register(c *gin.Context) {
	var in RegisterInput
	if !s.bind(c, &in) {
		return
	}
	u, err := s.uc.Register(c.Request.Context(), in)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	s.resp.Created(c, u, "User successfully registered")
}

func (s *Server) login(c *gin.Context) {
	var in LoginInput
	if !s.bind(c, &in) {
		return
	}
	out, err := s.uc.Login(c.Request.Context(), in)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	s.resp.OK(c, out, "Login successful")
}

func (s *Server) refresh(c *gin.Context) {
	var in RefreshInput
	if !s.bind(c, &in) {
		return
	}
	ctx := c.Request.Context()
	id, _ := requestctx.IdentityFrom(ctx)
	out, err := s.uc.Refresh(ctx, id.UserID, in, id.Token)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	s.resp.OK(c, out, "Token refreshed")
}

// logout ignores a malformed body; it always succeeds.
func (s *Server) logout(c *gin.Context) {
	var in LogoutInput
	_ = c.ShouldBindJSON(&in)

	ctx := c.Request.Context()
	id, _ := requestctx.IdentityFrom(ctx)
	s.uc.Logout(ctx, id.UserID, in, id.Token)
	s.resp.OK(c, nil, "Logged out")
}

func (s *Server) me(c *gin.Context) {
	ctx := c.Request.Context()
	uid, _ := requestctx.UserIDFrom(ctx)
	u, err := s.uc.Me(ctx, uid)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	s.resp.OK(c, u, "")
}

// bind decodes the JSON body; an empty body decodes to the zero value and
// is left to field validation.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		s.resp.Error(c, apperr.Validation("request body must be valid JSON"))
		return false
	}
	return true
}
