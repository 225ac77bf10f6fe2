// Command hekey is the host side tool for the hall-effect keypad: it monitors the key engine
// over the serial link, shows a live scope and generates the distance table.
package main

import "github.com/itohio/hekeypad/internal/recovery"

func main() {
	defer recovery.HandlePanic()
	Execute()
}
