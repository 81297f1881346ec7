package main

import "github.com/maxladabaum/experiment-automation/cmd/pump/cmd"

func main() {
	cmd.Execute()
}
