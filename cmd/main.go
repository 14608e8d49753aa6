package main

import (
	"github.com/corray333/backend-labs/serviceorder/internal/app"
	"github.com/corray333/backend-labs/serviceorder/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
