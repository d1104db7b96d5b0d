package main

import "github.com/sambabib/cpm-migrate/cmd"

func main() {
	cmd.Execute()
}
