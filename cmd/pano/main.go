package main

import "github.com/emrgen/panorama/cmd"

func main() {
	cmd.Execute()
}
