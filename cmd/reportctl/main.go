package main

import "github.com/bryanwahyu/pentest-report/pkg/cli"

func main() {
	cli.Execute()
}
