package main

import "log"

func main() {
	log.SetFlags(0) // Remove default timestamp since we add our own
	Execute()
}
