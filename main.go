package main

import "github.com/rvi-ar/casos-api/cmd"

func main() {
	cmd.Execute()
}
