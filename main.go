package main

import "github.com/tettuan/breakdown-sub016/cmd"

func main() {
	cmd.Execute()
}
