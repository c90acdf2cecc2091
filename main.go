package main

import "github.com/kiesman99/squarestitch/cmd"

func main() {
	cmd.Execute()
}
