package main

import "treedump/cmd"

func main() {
	cmd.Execute()
}
