/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/purgo-board/apiserver/cmd"

func main() {
	cmd.Execute()
}
