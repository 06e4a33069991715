package main

import "github.com/forPelevin/shortcut/internal/cli"

func main() { cli.Main() }
