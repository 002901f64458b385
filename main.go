package main

import "songbox/cmd"

func main() {
	cmd.Execute()
}
