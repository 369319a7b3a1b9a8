package infra

type DBType string

const (
	DBTypeRedisStandalone DBType = "standalone_redis"
)

type ConnectionFacade interface {
	GetConn() (interface{}, error)
	GetMeta() (map[string]interface{}, error)
	IsLive() bool
}
