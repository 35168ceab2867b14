package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/affiliateops/internal/signup/domain"
)

// 网关鉴权后注入的操作人请求头
const (
	HeaderActorID         = "X-Actor-ID"
	HeaderActorName       = "X-Actor-Name"
	HeaderActorRole       = "X-Actor-Role"
	HeaderActorScope      = "X-Actor-Scope"
	HeaderActorCanApprove = "X-Actor-Can-Approve"
)

// ActorKey 决策限流等中间件按操作人 ID 计数
func ActorKey(c *gin.Context) string {
	if id := c.GetHeader(HeaderActorID); id != "" {
		return "actor:" + id
	}
	return "ip:" + c.ClientIP()
}

// actorFrom 解析操作人；缺失角色按 STAFF、缺失范围按 BOTH 处理。失败时已写入响应
func actorFrom(c *gin.Context) (domain.Actor, bool) {
	actor, err := parseActor(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return domain.Actor{}, false
	}
	return actor, true
}

func parseActor(c *gin.Context) (domain.Actor, error) {
	actor := domain.Actor{
		ID:    c.GetHeader(HeaderActorID),
		Name:  c.GetHeader(HeaderActorName),
		Role:  domain.RoleStaff,
		Scope: domain.ScopeBoth,
	}
	if actor.ID == "" {
		return domain.Actor{}, errMissingActor
	}
	if raw := c.GetHeader(HeaderActorRole); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return domain.Actor{}, err
		}
		actor.Role = role
	}
	if raw := c.GetHeader(HeaderActorScope); raw != "" {
		scope, err := domain.ParsePermissionScope(raw)
		if err != nil {
			return domain.Actor{}, err
		}
		actor.Scope = scope
	}
	if raw := c.GetHeader(HeaderActorCanApprove); raw != "" {
		can, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.Actor{}, errInvalidCanApprove
		}
		actor.CanApprove = can
	}
	return actor, nil
}
