package common

import (
	"github.com/gin-gonic/gin"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etaccess"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/ginx"
)

// Actor 读取当前操作人，不存在时直接返回 401
func Actor(c *gin.Context) (etaccess.Actor, bool) {
	actor, ok := etaccess.FromContext(c.Request.Context())
	if !ok {
		ginx.FromError(c, errorx.New(errorx.ErrUnauthorized, "authentication required"))
		return etaccess.Actor{}, false
	}
	return actor, true
}
