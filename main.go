package main

import "github.com/drgolem/sfxmanager/cmd"

func main() {
	cmd.Execute()
}
