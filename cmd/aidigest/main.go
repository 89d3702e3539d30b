package main

import "aidigest/cmd/handlers"

func main() {
	handlers.Execute()
}
