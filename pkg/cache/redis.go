package cache

import (
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vipcxj/dash.go/config"
	"github.com/vipcxj/dash.go/errors"
	"github.com/vipcxj/dash.go/utils"
)

func checkRedisMode(mode string) (string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" || mode == "auto" || mode == "standalone" || mode == "cluster" || mode == "sentinel" {
		return mode, nil
	} else {
		return mode, errors.InvalidConfig("invalid redis mode %s, support one is auto, standalone, cluster or sentinel", mode)
	}
}

// parseRedisAddrs accepts either one redis:// url or a comma separated list
// of host:port pairs.
func parseRedisAddrs(conf *config.RedisConfigure) ([]string, *redis.Options, error) {
	if strings.TrimSpace(conf.Addrs) == "" {
		return nil, nil, errors.InvalidConfig("addrs is required for redis config")
	}
	addrs := utils.SplitTrim(conf.Addrs, ",")
	if len(addrs) == 1 {
		if opts, err := redis.ParseURL(addrs[0]); err == nil {
			return []string{opts.Addr}, opts, nil
		}
	}
	return addrs, nil, nil
}

type redisAuth struct {
	User string
	Pass string
}

func parseRedisAuth(conf *config.RedisConfigure) (redisAuth, error) {
	users := utils.SplitTrim(conf.Users, " ")
	passes := utils.SplitTrim(conf.Passes, " ")
	if len(users) > 1 || len(passes) > 1 {
		return redisAuth{}, errors.InvalidConfig("invalid redis config, only one user and one pass are supported")
	}
	var auth redisAuth
	if len(users) == 1 {
		auth.User = users[0]
	}
	if len(passes) == 1 {
		auth.Pass = passes[0]
	}
	return auth, nil
}

func MakeRedisClient(conf *config.RedisConfigure, clientName string) (redis.UniversalClient, error) {
	mode, err := checkRedisMode(conf.Mode)
	if err != nil {
		return nil, err
	}
	addrs, urlOpts, err := parseRedisAddrs(conf)
	if err != nil {
		return nil, err
	}
	auth, err := parseRedisAuth(conf)
	if err != nil {
		return nil, err
	}
	if mode == "" || mode == "auto" {
		if conf.MasterName != "" {
			mode = "sentinel"
		} else if len(addrs) > 1 {
			mode = "cluster"
		} else {
			mode = "standalone"
		}
	}
	switch mode {
	case "standalone":
		if len(addrs) != 1 {
			return nil, errors.InvalidConfig("redis config in standalone mode must specify one and only one address, but got %d addresses: %s", len(addrs), strings.Join(addrs, ","))
		}
		opts := urlOpts
		if opts == nil {
			opts = &redis.Options{Addr: addrs[0]}
		}
		opts.ClientName = clientName
		if auth.User != "" {
			opts.Username = auth.User
		}
		if auth.Pass != "" {
			opts.Password = auth.Pass
		}
		return redis.NewClient(opts), nil
	case "cluster":
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:      addrs,
			ClientName: clientName,
			Username:   auth.User,
			Password:   auth.Pass,
		}), nil
	case "sentinel":
		if conf.MasterName == "" {
			return nil, errors.InvalidConfig("invalid redis config, masterName is required for sentinel mode")
		}
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    conf.MasterName,
			SentinelAddrs: addrs,
			ClientName:    clientName,
			Username:      auth.User,
			Password:      auth.Pass,
		}), nil
	default:
		return nil, errors.ThisIsImpossible().GenCallStacks()
	}
}
