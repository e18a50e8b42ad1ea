package main

import (
	"fmt"
	myos "os"
)

func main() {
	fmt.Println("start")
	myos.Exit(1) // want "прямой вызов os.Exit в функции main запрещен"
	func() {
		myos.Exit(2) // want "прямой вызов os.Exit в функции main запрещен"
	}()
}

func helper() {
	myos.Exit(3)
}
