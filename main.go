/*
Copyright © 2026 Meridian HQ
*/
package main

import "github.com/meridianhq/execore/cmd"

func main() {
	cmd.Execute()
}
