package main

import (
	"os"

	"github.com/lifelink-community/pushtray/cmd"
	"github.com/lifelink-community/pushtray/internal/colors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		colors.Error(err.Error())
		os.Exit(1)
	}
}
