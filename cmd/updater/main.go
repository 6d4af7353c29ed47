package main

import (
	"updater/cmd/handlers"
)

func main() {
	handlers.Execute()
}
