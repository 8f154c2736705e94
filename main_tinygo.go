//go:build tinygo && baremetal

package main

import (
	"ringos/app"
	"ringos/hal"
	"ringos/internal/config"
)

func main() {
	_ = app.Run(hal.New(), config.Default())
	select {}
}
