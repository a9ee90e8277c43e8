package main

import (
	"fmt"
	"os"

	"github.com/mwantia/alder/cmd/alder/cli"
	"github.com/mwantia/alder/cmd/alder/cli/admin"
	"github.com/mwantia/alder/cmd/alder/cli/review"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	info := cli.VersionInfo{
		Version: version,
		Commit:  commit,
	}
	root := cli.NewRootCommand(info)

	root.AddCommand(cli.NewVersionCommand(info))

	root.AddCommand(admin.NewConfigCommand())
	root.AddCommand(admin.NewDatabaseCommand())
	root.AddCommand(admin.NewUserCommand())

	root.AddCommand(review.NewInterviewCommand())
	root.AddCommand(review.NewImageCommand())

	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
