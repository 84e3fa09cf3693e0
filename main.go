package main

import "github.com/RedPaladin7/wupattack/cmd"

func main() {
	cmd.Execute()
}
