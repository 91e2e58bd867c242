package main

import "github.com/edgequill/netload/cmd/netload/cmd"

func main() {
	cmd.Execute()
}
