package main

import "github.com/vietddude/vatcheck/internal/cli"

func main() {
	cli.Execute()
}
