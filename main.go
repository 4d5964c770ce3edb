package main

import "github.com/predictpool/settlement/cmd"

func main() {
	cmd.Execute()
}
