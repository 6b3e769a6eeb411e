package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/config"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/api/handler"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/api/middleware"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/pkg/jwt"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/pkg/redis"
)

const (
	defaultBodyLimit = 1 << 20 // 1MB
	importBodyLimit  = 5 << 20 // Excel 导入
	loginRateLimit   = 10      // 每分钟每 IP 登录次数
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时 Token 黑名单与限流降级关闭
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	var (
		checker middleware.TokenChecker
		limiter middleware.RateLimiter
	)
	if rdb != nil {
		checker = rdb
		limiter = rdb
	}

	r := gin.New()
	r.MaxMultipartMemory = importBodyLimit

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(defaultBodyLimit, map[string]int64{
		"/api/v1/users/import": importBodyLimit,
	}))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	admin := middleware.RoleAuth(model.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(limiter, loginRateLimit, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, checker, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 用户模块（管理员）
			users := authorized.Group("/users", admin)
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.GET("/candidates", h.User.ListCandidates)
				users.POST("/import", h.User.ImportVoters)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.DELETE("/:id", h.User.DeleteUser)
				users.PUT("/:id/role", h.User.AssignRole)
			}

			// 本人资料
			profile := authorized.Group("/profile")
			{
				profile.GET("", h.Profile.GetProfile)
				profile.PUT("", h.Profile.UpsertProfile)
				profile.DELETE("", h.Profile.DeleteProfile)
			}

			// 选举模块
			elections := authorized.Group("/elections")
			{
				elections.GET("", h.Election.ListElections)
				elections.GET("/active", h.Election.ListActiveElections)
				elections.GET("/calendar.ics", h.Election.Calendar)
				elections.GET("/:id", h.Election.GetElection)
				elections.GET("/:id/candidacies", h.Election.ListCandidacies)
				elections.POST("", admin, h.Election.CreateElection)
				elections.PUT("/:id", admin, h.Election.UpdateElection)
				elections.DELETE("/:id", admin, h.Election.DeleteElection)
				elections.POST("/:id/candidacies", admin, h.Election.CreateCandidacy)
			}
			authorized.DELETE("/candidacies/:id", admin, h.Election.DeleteCandidacy)

			// 投票模块
			votes := authorized.Group("/votes")
			{
				votes.POST("",
					middleware.RoleAuth(model.RoleVotante),
					middleware.RateLimitByUser(limiter, cfg.Voting.RateLimitPerMinute, time.Minute),
					h.Vote.CastVote,
				)
				votes.GET("/me", h.Vote.MyVotes)
				votes.GET("/me/elections", h.Vote.MyVotedElections)
			}

			// 计票结果
			results := authorized.Group("/results")
			{
				results.GET("", h.Result.ListResults)
				results.GET("/export", admin, h.Result.ExportResults)
				results.GET("/:electionId", h.Result.GetResult)
			}
		}
	}

	return r
}
