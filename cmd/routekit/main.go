package main

import (
	"github.com/openclaw/routekit/internal/infrastructure/cli"
)

func main() {
	cli.Execute()
}
