package main

import "sealhits/cmd/sealhits/cmd"

func main() {
	cmd.Execute()
}
