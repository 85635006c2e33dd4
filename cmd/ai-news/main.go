package main

import (
	"os"

	"github.com/yutsang/ai-news/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
