package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vk/assetgraph/internal/app"
	"github.com/vk/assetgraph/internal/watch"
)

// EnvPrefix prefixes the environment variables that supply flag defaults:
// --log-level is read from ASSETGRAPH_LOG_LEVEL.
const EnvPrefix = "ASSETGRAPH"

// Version is set with -ldflags "-X github.com/vk/assetgraph/internal/cli.Version=...".
var Version = "dev"

// NewRootCommand builds the assetgraph command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "assetgraph",
		Short: "Builds web assets along their dependency graph",
		Long: `assetgraph discovers the dependency graph between web assets (HTML, CSS,
JavaScript and binary files), applies configured transformation rules in
dependency order and writes the outputs with a content-addressed manifest.

The pipeline is described in a config file (.hcl, .yaml, .toml or .json).
Every flag can also be set through an ASSETGRAPH_<FLAG> environment variable,
for example ASSETGRAPH_LOG_LEVEL=debug.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
	})

	root.AddCommand(newBuildCommand(outW, errW))
	root.AddCommand(newWatchCommand(outW, errW))
	root.AddCommand(newVersionCommand(outW))
	return root
}

func newBuildCommand(outW, errW io.Writer) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build all assets once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := settings(v)
			if err != nil {
				return Classify(err)
			}
			a, err := app.NewApp(outW, errW, cfg, nil)
			if err != nil {
				return Classify(err)
			}
			return Classify(a.Run(cmd.Context()))
		},
	}
	addBuildFlags(cmd.Flags())
	bindFlags(v, cmd.Flags())
	return cmd
}

func newWatchCommand(outW, errW io.Writer) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever a source file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := settings(v)
			if err != nil {
				return Classify(err)
			}
			a, err := app.NewApp(outW, errW, cfg, nil)
			if err != nil {
				return Classify(err)
			}
			return Classify(a.Watch(cmd.Context()))
		},
	}
	fs := cmd.Flags()
	addBuildFlags(fs)
	fs.Duration("debounce", watch.DefaultDebounce, "Quiet period before a change triggers a rebuild.")
	fs.String("notify-url", "", "socket.io URL to publish build events to; the path selects the namespace.")
	fs.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	bindFlags(v, fs)
	return cmd
}

func newVersionCommand(outW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(outW, "assetgraph %s (%s, %s/%s)\n", versionString(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func versionString() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

func addBuildFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path to the pipeline config file.")
	fs.StringSliceP("entry", "e", nil, "Entry asset, relative to the source root. Repeatable; replaces the config's entries.")
	fs.StringP("out", "o", "", "Output directory. Overrides the config file.")
	fs.String("root", "", "Source root directory. Overrides the config file.")
	fs.IntP("workers", "w", runtime.NumCPU(), "Number of assets transformed in parallel.")
	fs.Duration("timeout", 0, "Abort the build after this long. 0 disables the timeout.")
	fs.String("mode", "production", "Build mode: 'production' or 'development'.")
	fs.String("cache", "", "Path of the incremental build cache file. Empty disables caching.")
	fs.Int("cache-size", 0, "Maximum number of cached artifacts. 0 uses the default.")
	fs.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	if err := v.BindPFlags(fs); err != nil {
		// Only fails for a nil flag set.
		panic(err)
	}
}

// settings reads the merged flag and environment values.
func settings(v *viper.Viper) (*app.Config, error) {
	return app.NewConfig(app.Config{
		ConfigPath:      v.GetString("config"),
		Entries:         v.GetStringSlice("entry"),
		OutDir:          v.GetString("out"),
		SourceRoot:      v.GetString("root"),
		Mode:            v.GetString("mode"),
		Workers:         v.GetInt("workers"),
		Timeout:         v.GetDuration("timeout"),
		CachePath:       v.GetString("cache"),
		CacheSize:       v.GetInt("cache-size"),
		LogLevel:        v.GetString("log-level"),
		LogFormat:       v.GetString("log-format"),
		Debounce:        v.GetDuration("debounce"),
		NotifyURL:       v.GetString("notify-url"),
		HealthcheckPort: v.GetInt("healthcheck-port"),
	})
}
