package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/vipcxj/dash.go/errors"
)

type RedisConfigure struct {
	Mode       string `mapstructure:"mode" json:"mode" default:"${MODE | auto}"`
	Addrs      string `mapstructure:"addrs" json:"addrs" default:"${ADDRS}"`
	Users      string `mapstructure:"users" json:"users" default:"${USERS}"`
	Passes     string `mapstructure:"passes" json:"passes" default:"${PASSES}"`
	KeyPrefix  string `mapstructure:"keyPrefix" json:"keyPrefix" default:"${KEY_PREFIX | dash:}"`
	MasterName string `mapstructure:"masterName" json:"masterName" default:"${MASTER_NAME}"`
}

type PrometheusConfigure struct {
	Enable       bool   `mapstructure:"enable" json:"enable" default:"${ENABLE | false}"`
	Namespace    string `mapstructure:"namespace" json:"namespace" default:"${NAMESPACE | dash}"`
	Subsystem    string `mapstructure:"subsystem" json:"subsystem" default:"${SUBSYSTEM | parser}"`
	GoCollectors bool   `mapstructure:"goCollectors" json:"goCollectors" default:"${GO_COLLECTORS | false}"`
}

type DashConfigure struct {
	Log struct {
		Profile string `mapstructure:"profile" json:"profile" default:"${DASH_LOG_PROFILE | production}"`
		Level   string `mapstructure:"level" json:"level" default:"${DASH_LOG_LEVEL | info}"`
	} `mapstructure:"log" json:"log" default:""`
	Parser struct {
		FallbackBaseUrl string `mapstructure:"fallbackBaseUrl" json:"fallbackBaseUrl" default:"${DASH_PARSER_FALLBACK_BASE_URL}"`
	} `mapstructure:"parser" json:"parser" default:""`
	Server struct {
		Enable       bool   `mapstructure:"enable" json:"enable" default:"${DASH_SERVER_ENABLE | true}"`
		HostOrIp     string `mapstructure:"hostOrIp" json:"hostOrIp" default:"${DASH_SERVER_HOST_OR_IP}"`
		Port         int    `mapstructure:"port" json:"port" default:"${DASH_SERVER_PORT | 0}"`
		Cors         string `mapstructure:"cors" json:"cors" default:"${DASH_SERVER_CORS}"`
		MaxBodyBytes int64  `mapstructure:"maxBodyBytes" json:"maxBodyBytes" default:"${DASH_SERVER_MAX_BODY_BYTES | 8388608}"`
		Tls          struct {
			Enable bool   `mapstructure:"enable" json:"enable" default:"${DASH_SERVER_TLS_ENABLE | false}"`
			Cert   string `mapstructure:"cert" json:"cert" default:"${DASH_SERVER_TLS_CERT}"`
			Key    string `mapstructure:"key" json:"key" default:"${DASH_SERVER_TLS_KEY}"`
		} `mapstructure:"tls" json:"tls" default:""`
		Gin struct {
			Debug        bool `mapstructure:"debug" json:"debug" default:"${DASH_SERVER_GIN_DEBUG | false}"`
			NoRequestLog bool `mapstructure:"noRequestLog" json:"noRequestLog" default:"${DASH_SERVER_GIN_NO_REQUEST_LOG | false}"`
		} `mapstructure:"gin" json:"gin" default:""`
		Healthy struct {
			Enable           bool   `mapstructure:"enable" json:"enable" default:"${DASH_SERVER_HEALTHY_ENABLE | true}"`
			FailureThreshold int    `mapstructure:"failureThreshold" json:"failureThreshold" default:"${DASH_SERVER_HEALTHY_FAILURE_THRESHOLD | 3}"`
			Path             string `mapstructure:"path" json:"path" default:"${DASH_SERVER_HEALTHY_PATH | /healthz}"`
		} `mapstructure:"healthy" json:"healthy" default:""`
	} `mapstructure:"server" json:"server" default:""`
	Prometheus PrometheusConfigure `mapstructure:"prometheus" json:"prometheus" default:"" defaultenvprefix:"DASH_PROMETHEUS_"`
	Cache      struct {
		Enable bool           `mapstructure:"enable" json:"enable" default:"${DASH_CACHE_ENABLE | false}"`
		TtlSec int            `mapstructure:"ttlSec" json:"ttlSec" default:"${DASH_CACHE_TTL_SEC | 60}"`
		Redis  RedisConfigure `mapstructure:"redis" json:"redis" default:"" defaultenvprefix:"DASH_CACHE_REDIS_"`
	} `mapstructure:"cache" json:"cache" default:""`
}

type LogProfile int

const (
	LOG_PROFILE_DEVELOPMENT LogProfile = iota
	LOG_PROFILE_PRODUCTION
)

func NewLogProfile(s string) LogProfile {
	switch strings.ToLower(s) {
	case "development":
		return LOG_PROFILE_DEVELOPMENT
	case "production", "":
		return LOG_PROFILE_PRODUCTION
	default:
		panic(errors.InvalidParam("invalid log profile %s", s))
	}
}

func (me LogProfile) String() string {
	switch me {
	case LOG_PROFILE_DEVELOPMENT:
		return "development"
	case LOG_PROFILE_PRODUCTION:
		return "production"
	default:
		panic(errors.InvalidParam("invalid log profile %d", me))
	}
}

func (c *DashConfigure) LogProfile() LogProfile {
	return NewLogProfile(c.Log.Profile)
}

func (c *DashConfigure) PromEnable() bool {
	return c.Prometheus.Enable
}

func (c *DashConfigure) GetProm() *PrometheusConfigure {
	return &c.Prometheus
}

func (c *DashConfigure) GetRedis() *RedisConfigure {
	return &c.Cache.Redis
}

func (c *DashConfigure) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TtlSec) * time.Second
}

func (c *DashConfigure) ServerPort() int {
	port := c.Server.Port
	if port == 0 {
		if c.Server.Tls.Enable {
			return 4430
		} else {
			return 8080
		}
	} else {
		return port
	}
}

func (c *DashConfigure) ServerListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.HostOrIp, c.ServerPort())
}

func requiredString(name string, value string, postfix string) error {
	if value == "" {
		return errors.InvalidConfig("invalid config, %s is required%s", name, postfix)
	}
	return nil
}

func requiredPositive(name string, value int64, postfix string) error {
	if value <= 0 {
		return errors.InvalidConfig("invalid config, %s must be positive%s", name, postfix)
	}
	return nil
}

func (c *DashConfigure) Validate() error {
	switch strings.ToLower(c.Log.Profile) {
	case "development", "production", "":
	default:
		return errors.InvalidConfig("invalid config, log.profile must be development or production, but got %s", c.Log.Profile)
	}
	if c.Server.Enable {
		err := requiredPositive("server.maxBodyBytes", c.Server.MaxBodyBytes, " when server enabled")
		if err != nil {
			return err
		}
		if c.Server.Tls.Enable {
			err = requiredString("server.tls.cert", c.Server.Tls.Cert, " when server.tls enabled")
			if err != nil {
				return err
			}
			err = requiredString("server.tls.key", c.Server.Tls.Key, " when server.tls enabled")
			if err != nil {
				return err
			}
		}
	}
	if c.Cache.Enable {
		err := requiredString("cache.redis.addrs", c.Cache.Redis.Addrs, " when cache enabled")
		if err != nil {
			return err
		}
		err = requiredPositive("cache.ttlSec", int64(c.Cache.TtlSec), " when cache enabled")
		if err != nil {
			return err
		}
	}
	return nil
}

var KEYS = []string{
	"log.profile:string",
	"log.level:string",
	"parser.fallbackBaseUrl:string",
	"server.enable:bool",
	"server.hostOrIp:string",
	"server.port:int",
	"server.cors:string",
	"server.maxBodyBytes:int",
	"server.tls.enable:bool",
	"server.tls.cert:string",
	"server.tls.key:string",
	"server.gin.debug:bool",
	"server.gin.noRequestLog:bool",
	"server.healthy.enable:bool",
	"server.healthy.failureThreshold:int",
	"server.healthy.path:string",
	"prometheus.enable:bool",
	"prometheus.namespace:string",
	"prometheus.subsystem:string",
	"prometheus.goCollectors:bool",
	"cache.enable:bool",
	"cache.ttlSec:int",
	"cache.redis.mode:string",
	"cache.redis.addrs:string",
	"cache.redis.users:string",
	"cache.redis.passes:string",
	"cache.redis.keyPrefix:string",
	"cache.redis.masterName:string",
}
