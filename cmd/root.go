package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/saltyorg/recipe/internal/config"
	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/github"
	"github.com/saltyorg/recipe/internal/logfields"
	"github.com/saltyorg/recipe/internal/manifest"
	"github.com/saltyorg/recipe/internal/runtime"
	"github.com/saltyorg/recipe/internal/site"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	verbose      bool
	showVersion  bool
	destTree     string
	templatesDir string
	sourceFilter string
	keepGoing    bool
	manifestPath string
)

// rootCmd builds a site when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recipe [source dir]",
	Short: "Static site generator driven by a layered document stack",
	Long: `recipe walks a source tree and writes a site to the destination tree.

Files whose extension is a source extension, or whose name or parent
directory starts with an underscore, are documents: their front matter and
body are layered over the directory's __config.json vars and rendered with a
.jsont template. Everything else is copied. Directories and files starting
with "__" are never visited.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(runtime.VersionString())
			return nil
		}

		opts, err := resolveOptions(cmd, args)
		if err != nil {
			return err
		}
		setupLogging(opts.Verbose)
		return build(cmd, opts)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.Flags().BoolVarP(&showVersion, "version", "V", false, "print version information and exit")
	rootCmd.Flags().StringVarP(&destTree, config.KeyDestTree, "d", "", "destination tree (default: <source>/__output)")
	rootCmd.Flags().StringVarP(&templatesDir, config.KeyTemplatesDir, "t", "", "templates directory (default: <source>/__templates)")
	rootCmd.Flags().StringVarP(&sourceFilter, config.KeySourceFilter, "f", "", "only process files whose relative path matches this regexp")
	rootCmd.Flags().BoolVarP(&keepGoing, config.KeyKeepGoing, "k", false, "keep going after a document fails to build")
	rootCmd.Flags().StringVar(&manifestPath, config.KeyManifest, "", "record every file's outcome in this SQLite database")
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfigFile returns the YAML config file layer, or an empty layer when
// no --config was given.
func loadConfigFile() (map[string]any, error) {
	if cfgFile == "" {
		return map[string]any{}, nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg.Layer(), nil
}

// resolveOptions layers the built-in defaults, the YAML config file, the
// source tree's root __config.json and the flags that were set.
func resolveOptions(cmd *cobra.Command, args []string) (*config.Options, error) {
	file, err := loadConfigFile()
	if err != nil {
		return nil, err
	}

	source := "."
	if len(args) == 1 {
		source = args[0]
	} else if s, ok := file[config.KeySourceTree].(string); ok {
		source = s
	}

	root, err := config.ReadDirConfig(filetree.NewOS(source), "")
	if err != nil {
		return nil, err
	}
	delete(root, config.KeySourceTree)

	flags := map[string]any{config.KeySourceTree: source}
	if verbose {
		flags[config.KeyVerbose] = true
	}
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed(config.KeyDestTree) {
		flags[config.KeyDestTree] = destTree
	}
	if changed(config.KeyTemplatesDir) {
		flags[config.KeyTemplatesDir] = templatesDir
	}
	if changed(config.KeySourceFilter) {
		flags[config.KeySourceFilter] = sourceFilter
	}
	if changed(config.KeyKeepGoing) {
		flags[config.KeyKeepGoing] = keepGoing
	}
	if changed(config.KeyManifest) {
		flags[config.KeyManifest] = manifestPath
	}

	opts, err := config.Resolve(config.Defaults(source), file, root, flags)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func build(cmd *cobra.Command, opts *config.Options) (err error) {
	s := site.New(opts)

	if opts.Manifest != "" {
		store, openErr := manifest.Open(opts.Manifest)
		if openErr != nil {
			return openErr
		}
		defer func() { err = errors.Join(err, store.Close()) }()
		s.UseRecorder(store, store.RunID())
	}

	summary, err := s.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)

	if err := stepSummary(opts, summary).WriteStepSummary(); err != nil {
		slog.Warn("Failed to write step summary", logfields.Error(err))
	}
	return nil
}

func stepSummary(opts *config.Options, s *site.Summary) *github.BuildSummary {
	gs := &github.BuildSummary{
		Source:      opts.SourceTree,
		Dest:        s.Dest,
		RunID:       s.RunID,
		Generated:   s.Generated,
		Copied:      s.Copied,
		Skipped:     s.Skipped,
		Filtered:    s.Filtered,
		Failed:      s.Failed,
		BytesCopied: humanize.Bytes(uint64(s.BytesCopied)),
	}
	for _, f := range s.Failures {
		gs.Failures = append(gs.Failures, github.Failure{Path: f.Path, Error: f.Err.Error()})
	}
	return gs
}
