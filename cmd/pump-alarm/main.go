package main

import "github.com/oshokin/pump-alarm-gateway/cmd/pump-alarm/cmd"

func main() {
	cmd.Execute()
}
