package main

import "github.com/saltyorg/recipe/cmd"

func main() {
	cmd.Execute()
}
