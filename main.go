package main

import "github.com/timvw/veracity-node/cmd"

func main() {
	cmd.Execute()
}
