package b

import "os"

func main() {
	os.Exit(0)
}

// Exit не является os.Exit
func Exit(int) {}

func other() {
	Exit(1)
}
