// Package main is the entry point of hlsplay.
package main

import (
	"github.com/hlsplay/hlsplay/cmd"
	"github.com/hlsplay/hlsplay/config"
	"github.com/hlsplay/hlsplay/internal/cache"
	"github.com/hlsplay/hlsplay/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	go cache.CollectGarbage()

	cmd.Execute()
}
