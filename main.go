package main

import "github.com/KaramelBytes/dashcsv-cli/cmd"

func main() {
	cmd.Execute()
}
