// main.go - Entry point for difychat. Command handling, config loading and
// the terminal UI live under src/.

package main

import "difychat/src/cli"

func main() {
	cli.Execute()
}
