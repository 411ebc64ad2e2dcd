package main

import (
	"os"

	"github.com/lunixbochs/elfinfo/go/cmd"

	_ "github.com/lunixbochs/elfinfo/go/cmd/auxv"
	_ "github.com/lunixbochs/elfinfo/go/cmd/inspect"
)

func main() { os.Exit(cmd.Main(os.Args, os.Stderr)) }
