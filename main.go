// dnslisten is a daemon that turns its declarative listener configuration
// into a set of bound DNS listening sockets and serves a static response on
// them.
package main

import "github.com/fcchbjm/dnslisten/internal/cmd"

func main() {
	cmd.Main()
}
