package main

import "github.com/LadyMermelada/basketscore/internal/cli"

func main() {
	cli.Execute()
}
