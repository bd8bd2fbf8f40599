package middlewares

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etaccess"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/ginx"
)

// Claims 访问令牌声明，sub 为用户 ID
type Claims struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Location string `json:"location"`
	jwt.RegisteredClaims
}

// Auth 校验 Bearer 令牌（HS256），将操作人写入请求 Context
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			ginx.FromError(c, errorx.New(errorx.ErrUnauthorized, "missing bearer token"))
			return
		}

		actor, err := parseToken(strings.TrimSpace(raw), key)
		if err != nil {
			ginx.FromError(c, errorx.Wrap(errorx.ErrUnauthorized, err))
			return
		}

		c.Request = c.Request.WithContext(etaccess.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireElevated 仅允许 admin / super_admin
func RequireElevated() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := etaccess.FromContext(c.Request.Context())
		if !ok {
			ginx.FromError(c, errorx.New(errorx.ErrUnauthorized, "authentication required"))
			return
		}
		if !actor.IsElevated() {
			ginx.FromError(c, errorx.Newf(errorx.ErrForbidden, "role %s is not allowed to perform this action", actor.Role))
			return
		}
		c.Next()
	}
}

// IssueToken 签发令牌（测试和运维脚本使用）
func IssueToken(secret string, actor etaccess.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name:     actor.Name,
		Role:     string(actor.Role),
		Location: actor.Location,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

func parseToken(raw string, key []byte) (etaccess.Actor, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return etaccess.Actor{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return etaccess.Actor{}, fmt.Errorf("invalid token claims")
	}
	return etaccess.NewActor(claims.Subject, claims.Name, etaccess.Role(claims.Role), claims.Location)
}
