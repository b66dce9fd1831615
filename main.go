package main

import (
	"os"

	"github.com/community-dashboard/community-dashboard/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
