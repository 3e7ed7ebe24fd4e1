package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DevTigeer/ClosetConnectProject/internal/queue/rabbitmq"
	minioclient "github.com/DevTigeer/ClosetConnectProject/internal/storage/minio"
	redisclient "github.com/DevTigeer/ClosetConnectProject/pkg/database/redis"
)

type Handler struct {
	pgPool       *pgxpool.Pool
	minioClient  *minioclient.Client
	rabbitClient *rabbitmq.Client
	redisClient  *redisclient.Client
}

func NewHandler(pg *pgxpool.Pool, minio *minioclient.Client, rabbit *rabbitmq.Client, redis *redisclient.Client) *Handler {
	return &Handler{
		pgPool:       pg,
		minioClient:  minio,
		rabbitClient: rabbit,
		redisClient:  redis,
	}
}

// authenticatedUserID returns the user id the auth middleware stored in
// the request context.
func authenticatedUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("userId")
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
