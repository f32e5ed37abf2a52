/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/cybercards/apiserver/cmd"

func main() {
	cmd.Execute()
}
