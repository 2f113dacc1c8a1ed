package main

import (
	"github.com/sockbridge/sockbridge/internal/app"
)

func main() {
	_ = app.Sockbridge().Execute()
}
