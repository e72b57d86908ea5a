package main

import "github.com/oshokin/pump-alarm-gateway/cmd/pump-sampler/cmd"

func main() {
	cmd.Execute()
}
