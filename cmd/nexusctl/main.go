package main

import (
	"context"
	"fmt"
	"os"

	"assetbridge-nexus/internal/cli"
	"assetbridge-nexus/internal/common"
)

func main() {
	_, loggerCleanup := common.InitializeLogger()

	err := cli.NewRootCommand(cli.DefaultLoader).ExecuteContext(context.Background())
	loggerCleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
