package main

//go-build: CGO_ENABLED=0

import (
	"github.com/robotalks/obc.go/pkg/cli/sh"

	_ "github.com/robotalks/obc.go/pkg/cli/cmds/obc"
)

func main() {
	sh.Main()
}
