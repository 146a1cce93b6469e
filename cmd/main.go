package main

import "github.com/dotaedge/esport-signal/internal/process"

func main() {
	process.Run()
}
