package main

import "nurse-booking/cmd"

func main() {
	cmd.Execute()
}
