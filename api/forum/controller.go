package forum

import (
	"ddd-users/api/response"
	forumapp "ddd-users/application/forum"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	members *forumapp.MemberService
}

func NewController(members *forumapp.MemberService) *Controller {
	return &Controller{members: members}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/members/:username", c.GetMember)
}

func (c *Controller) GetMember(ctx *gin.Context) {
	member, err := c.members.GetMemberByUsername(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, member, "Member retrieved successfully")
}
