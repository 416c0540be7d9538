package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"go.uber.org/fx"

	"campusride-relay/internal/app"
	"campusride-relay/internal/config"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type cli struct {
	config.CLI `kong:"embed"`

	Version kong.VersionFlag `kong:"help='Print version and exit.'"`
}

func main() {
	profile := config.CampusRideProfile()

	var c cli
	kong.Parse(&c,
		kong.Name(profile.Name),
		kong.Description(profile.Description),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(app.Module(profile, &c.CLI, version)).Run()
}
