package main

import "github.com/chris/railtl/cmd"

func main() {
	cmd.Execute()
}
