package main

import "github.com/yeremiapane/table-order/cmd"

func main() {
	cmd.Execute()
}
