package main

import cmd "github.com/inference-gateway/modui/cmd"

func main() {
	cmd.Execute()
}
