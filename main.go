package main

import "github.com/meysamhadeli/scriptindex/cmd"

func main() {
	cmd.Execute()
}
