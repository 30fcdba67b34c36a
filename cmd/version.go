package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-arrower/ipquery"
)

func newVersionCmd(vip *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:                   "version",
		Short:                 "Print the ipquery version and the middleware configuration",
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "ipquery version: %s\n", readBuildInfo())

			conf, err := ipquery.LoadConfig(vip)
			if err != nil {
				fmt.Fprintf(out, "middleware: %v\n", err)

				return
			}

			fmt.Fprintf(out, "middleware: policy=%s endpoint=%s forwarded_for=%t timeout=%s\n",
				conf.Policy, conf.Endpoint, conf.ForwardedFor, conf.Timeout)
		},
	}
}

// buildInfo is what the go toolchain embedded into the binary.
// `go run` and `go test` do not embed the vcs information, only `go build` does.
type buildInfo struct {
	revision  string
	time      string
	modified  bool
	goVersion string
}

func readBuildInfo() buildInfo {
	var info buildInfo

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	info.goVersion = bi.GoVersion

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.revision = setting.Value
		case "vcs.time":
			info.time = setting.Value
		case "vcs.modified":
			info.modified = setting.Value == "true"
		}
	}

	return info
}

// String is e.g. `1a2b3c from 2024-06-01T12:00:00Z (go1.23.0)`.
func (b buildInfo) String() string {
	version := b.revision
	if version == "" {
		version = "devel"
	}

	if b.modified {
		version += "-dirty"
	}

	if b.time != "" {
		version += " from " + b.time
	}

	if b.goVersion != "" {
		version += " (" + b.goVersion + ")"
	}

	return version
}
