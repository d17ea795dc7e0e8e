package main

import "alsampler/internal/cli"

func main() {
	cli.Execute()
}
