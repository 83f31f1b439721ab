package main

import "github.com/killallgit/audio-recap/cmd"

func main() {
	cmd.Execute()
}
