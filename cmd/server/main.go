package main

import "frpops/internal/app/server"

func main() {
	server.Run()
}
