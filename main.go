package main

import (
	"github.com/hjh12035/NLP-Proj2/cmd"
)

func main() {
	cmd.Execute()
}
