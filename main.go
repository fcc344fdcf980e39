package main

import "inventory-sync/cmd"

func main() {
	cmd.Execute()
}
