package main

import "github.com/jfmyers9/tunecord/cmd"

func main() {
	cmd.Execute()
}
