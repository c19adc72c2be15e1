package main

import (
	"nosey"
)

var version = "dev"

// main runs the plugins that need no registered Go modules: PHPUnit
// collection, the failures viewer and the results database.
func main() {
	nosey.Version = version
	nosey.Main()
}
