package main

import "github.com/rskv-p/nested/cmd"

func main() {
	cmd.Execute()
}
