package main

import "github.com/denMaier/solids4foam-sub000/cmd"

func main() {
	cmd.Execute()
}
