package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/fang"

	"github.com/lehigh-university-libraries/extractcompare/cmd"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = ""

func main() {
	if version == "" {
		version = "dev"
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}

	if err := fang.Execute(
		context.Background(),
		cmd.NewRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
