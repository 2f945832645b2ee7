// wsd - standalone WebSocket server daemon
package main

import "github.com/getmockd/wsd/pkg/cli"

func main() {
	cli.Execute()
}
