package main

import "github.com/notargets/gopart/cmd"

func main() {
	cmd.Execute()
}
