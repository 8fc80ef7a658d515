package config

import (
	"fmt"
	"os"

	"github.com/gookit/config/v2"
	"github.com/gookit/config/v2/ini"
	"github.com/gookit/config/v2/json5"
	"github.com/gookit/config/v2/toml"
	"github.com/gookit/config/v2/yamlv3"
)

var CONFIGURE = &DashConfigure{}

func newLoader() *config.Config {
	c := config.New("dash")
	c.WithOptions(config.ParseEnv, config.ParseTime, config.ParseDefault)
	c.AddDriver(ini.Driver)
	c.AddDriver(json5.Driver)
	c.AddDriver(yamlv3.Driver)
	c.AddDriver(toml.Driver)
	return c
}

func candidates(name string) []string {
	return []string{
		fmt.Sprintf("%s.yml", name),
		fmt.Sprintf("%s.yaml", name),
		fmt.Sprintf("%s.json", name),
		fmt.Sprintf("%s.toml", name),
		fmt.Sprintf("%s.ini", name),
	}
}

func InitConfig(conf any, keys []string, conf_name string, secret_conf_name string) error {
	c := newLoader()
	var err error
	confPath, ok := os.LookupEnv("DASH_CONFIG_PATH")
	if ok && confPath != "" {
		err = c.LoadFiles(confPath)
	} else {
		err = c.LoadExists(candidates(conf_name)...)
	}
	if err != nil {
		return err
	}
	secretPath, ok := os.LookupEnv("DASH_SECRET_PATH")
	if ok && secretPath != "" {
		err = c.LoadFiles(secretPath)
	} else {
		err = c.LoadExists(candidates(secret_conf_name)...)
	}
	if err != nil {
		return err
	}
	err = c.LoadFlags(keys)
	if err != nil {
		return err
	}
	return c.Decode(conf)
}

// LoadFile decodes a single configuration file into conf, applying env
// expansion and defaults but no command line flags.
func LoadFile(conf any, path string) error {
	c := newLoader()
	if err := c.LoadFiles(path); err != nil {
		return err
	}
	return c.Decode(conf)
}

func Init() error {
	return InitConfig(CONFIGURE, KEYS, "dash", "secret")
}

func Conf() *DashConfigure {
	return CONFIGURE
}
