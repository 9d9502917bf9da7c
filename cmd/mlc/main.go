package main

import (
	"os"

	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
