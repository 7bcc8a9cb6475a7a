package main

import "deepresearch/cmd"

func main() {
	cmd.Execute()
}
