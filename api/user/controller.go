package user

import (
	"net/http"

	"ddd-users/api/middleware"
	"ddd-users/api/response"
	userapp "ddd-users/application/user"
	"ddd-users/pkg/errors"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	userService *userapp.Service
	tokens      middleware.TokenParser
}

func NewController(userService *userapp.Service, tokens middleware.TokenParser) *Controller {
	return &Controller{
		userService: userService,
		tokens:      tokens,
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	userGroup := router.Group("/users")
	{
		userGroup.POST("", c.CreateUser)
		userGroup.POST("/login", c.Login)
		userGroup.GET("/:id", c.GetUser)
		userGroup.DELETE("/:id", middleware.RequireAuth(c.tokens), c.DeleteUser)
		userGroup.POST("/:id/verify-email", c.VerifyEmail)
	}
}

func (c *Controller) CreateUser(ctx *gin.Context) {
	var req userapp.CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleBindError(ctx, err)
		return
	}

	user, err := c.userService.CreateUser(ctx.Request.Context(), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleCreated(ctx, user, "User created successfully")
}

func (c *Controller) GetUser(ctx *gin.Context) {
	user, err := c.userService.GetUser(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, user, "User retrieved successfully")
}

// DeleteUser 只允许本人或管理员删除
func (c *Controller) DeleteUser(ctx *gin.Context) {
	userID := ctx.Param("id")
	claims, ok := middleware.ClaimsFrom(ctx)
	if !ok || (claims.Subject != userID && !claims.Admin) {
		response.Abort(ctx, http.StatusForbidden, errors.CodeForbidden, "not allowed to delete this user")
		return
	}

	if err := c.userService.DeleteUser(ctx.Request.Context(), userID); err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, nil, "User deleted successfully")
}

func (c *Controller) Login(ctx *gin.Context) {
	var req userapp.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleBindError(ctx, err)
		return
	}

	tokens, err := c.userService.Login(ctx.Request.Context(), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, tokens, "Logged in")
}

func (c *Controller) VerifyEmail(ctx *gin.Context) {
	user, err := c.userService.VerifyEmail(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, user, "Email verified")
}
