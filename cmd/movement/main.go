package main

import "github.com/vietddude/movement-kit/internal/cli"

func main() {
	cli.Execute()
}
