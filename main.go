package main

import "github.com/hurou927/schemalens/cmd"

func main() {
	cmd.Execute()
}
