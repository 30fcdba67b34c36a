package main

import "github.com/go-arrower/ipquery/cmd"

func main() {
	cmd.Execute()
}
