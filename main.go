// Package main is the entry point for the exempla application: batch
// embedding of RVTools inventory datasets and retrieval-augmented chat over
// them.
package main

import "github.com/let-userName-Brian/exempla-ai/cmd"

func main() {
	cmd.Execute()
}
