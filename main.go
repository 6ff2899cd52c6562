package main

import "github.com/terraconstructs/gridguard/cmd"

func main() {
	cmd.Execute()
}
