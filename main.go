package main

import "github.com/rfarchive/rfarchive/cmd"

func main() {
	cmd.Execute()
}
