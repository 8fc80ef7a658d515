package main

import (
	"github.com/vipcxj/dash.go/config"
	"github.com/vipcxj/dash.go/errors"
	"github.com/vipcxj/dash.go/log"
	"github.com/vipcxj/dash.go/parseserver"
)

func main() {
	// init depend on empty confg
	log.Init()
	err := config.Init()
	if err != nil {
		log.Sugar().Fatalln(err)
		return
	}
	err = config.Conf().Validate()
	if err != nil {
		log.Sugar().Fatalln(err)
		return
	}
	// init depend on inited confg
	log.Init()

	ch := make(chan error)
	go parseserver.Run(config.Conf(), ch)
	err = <-ch
	if !errors.IsOk(err) {
		log.Sugar().Fatalln(err)
	}
}
