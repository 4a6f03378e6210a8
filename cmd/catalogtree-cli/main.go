package main

import "catalogtree/cmd/catalogtree-cli/cmd"

func main() {
	cmd.Execute()
}
