package main

import "github.com/khrees2412/rosterctl/cmd"

func main() {
	cmd.Execute()
}
