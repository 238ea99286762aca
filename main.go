package main

import "github.com/curaious/voicerelay/cmd"

func main() {
	cmd.Execute()
}
