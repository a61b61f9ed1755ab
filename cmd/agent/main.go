package main

import (
	"web-agent/internal/bootstrap"
)

func main() {
	bootstrap.NewApp().Run()
}
