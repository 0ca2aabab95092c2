package main

import "github.com/KaramelBytes/winelens/cmd"

func main() {
	cmd.Execute()
}
