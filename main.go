package main

import "example.com/medipi/hub/cmd"

func main() {
	cmd.Execute()
}
