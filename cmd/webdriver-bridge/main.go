// WebDriver Bridge
//
// This binary runs in two roles:
//  1. serve: hosts the listener the browser extension polls, launches the
//     browser and opens the control socket for client bindings
//  2. exec / commands: talks to a running bridge through the control socket
//     or prints the command catalog

package main

func main() {
	execute()
}
