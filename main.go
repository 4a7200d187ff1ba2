package main

import "github.com/mountainsensing/msfetch/cmd"

func main() {
	cmd.Execute()
}
