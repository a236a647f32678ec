// Command roster manages person records through the roster transport proxy.
package main

import "github.com/mesh-intelligence/roster/internal/cli"

func main() {
	cli.Execute()
}
