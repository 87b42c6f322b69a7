// The main package for the scanengine executable.
package main

import (
	"github.com/LeoVertizBP/content-scan-engine/cmd"
)

func main() {
	cmd.Execute()
}
