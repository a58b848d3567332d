package main

import (
	"os"

	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
)

// @title           Task API
// @version         1.0
// @description     REST API for a to-do list: create, read, update, delete, filter and sort tasks.

// @host      localhost:8080
// @BasePath  /

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
