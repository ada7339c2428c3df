package main

import "github.com/alex-user-go/tripquote/internal/cli"

func main() {
	cli.Execute()
}
