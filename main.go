package main

import "school-registration/cmd"

func main() {
	cmd.Execute()
}
