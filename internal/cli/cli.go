// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/repodigest/repodigest/internal/config"
	"github.com/repodigest/repodigest/internal/gitclone"
	"github.com/repodigest/repodigest/internal/ingest"
	"github.com/repodigest/repodigest/internal/services/clipboard"
	"github.com/repodigest/repodigest/internal/tokenizer"
	"github.com/repodigest/repodigest/internal/utils"
)

const (
	rootUse              = "repodigest [source]"
	rootShortDescription = "repodigest command line interface"
	rootLongDescription  = `repodigest turns a source tree into a single prompt-friendly text digest.
It accepts a local directory or a repository location, filters files with
include/exclude patterns and a size threshold, and writes a summary, a
directory tree, and the concatenated file contents.
Use serve to expose the same engine over HTTP and --version to print the application version.`
	// rootUsageExample demonstrates common invocations.
	rootUsageExample = `  # Digest the current directory into digest.txt
  repodigest .

  # Digest a repository branch to stdout, Python sources only
  repodigest https://github.com/owner/repo -b main -i "*.py" -o -

  # Digest a subdirectory, skipping tests and files over 64 KiB
  repodigest . --subpath internal -e "*_test.go" -s 65536`

	outputFlagName               = "output"
	outputFlagShorthand          = "o"
	outputFlagDescription        = "output file path, '-' writes the digest to stdout"
	maxSizeFlagName              = "max-size"
	maxSizeFlagShorthand         = "s"
	maxSizeFlagDescription       = "maximum size in bytes of a file to include"
	includeFlagName              = "include-pattern"
	includeFlagShorthand         = "i"
	includeFlagDescription       = "include only paths matching the pattern (repeatable)"
	excludeFlagName              = "exclude-pattern"
	excludeFlagShorthand         = "e"
	excludeFlagDescription       = "exclude paths matching the pattern (repeatable)"
	branchFlagName               = "branch"
	branchFlagShorthand          = "b"
	branchFlagDescription        = "branch to clone when the source is a repository"
	subpathFlagName              = "subpath"
	subpathFlagDescription       = "digest only this subdirectory of the source"
	maxFilesFlagName             = "max-files"
	maxFilesFlagDescription      = "maximum number of files to include"
	maxTotalBytesFlagName        = "max-total-bytes"
	maxTotalBytesFlagDescription = "maximum total bytes to include"
	tokenModelFlagName           = "token-model"
	tokenModelFlagDescription    = "tokenizer model used for token estimates"
	gitignoreFlagName            = "gitignore"
	gitignoreFlagDescription     = "honor .gitignore patterns found in the source"
	ignoreFileFlagName           = "ignore-file"
	ignoreFileFlagDescription    = "honor .repodigestignore patterns found in the source"
	copyFlagName                 = "copy"
	copyFlagDescription          = "copy the digest to the system clipboard"
	configFlagName               = "config"
	configFlagDescription        = "path to a configuration file"
	versionFlagName              = "version"
	versionFlagDescription       = "display application version"
	versionTemplate              = "repodigest version: %s\n"

	defaultSourceArgument = "."
	stdoutOutputTarget    = "-"
	defaultOutputTarget   = "digest.txt"

	workingDirectoryErrorFormat  = "unable to determine working directory: %w"
	configurationLoadErrorFormat = "unable to load configuration: %w"
	digestWriteErrorFormat       = "unable to write digest to %s: %w"
	clipboardWarningFormat       = "Warning: unable to copy digest to clipboard: %v\n"
	ignoreLoadWarningFormat      = "Warning: unable to read ignore files under %s: %v\n"
	digestWrittenMessageFormat   = "Digest written to %s\n"
)

// Execute runs the repodigest application.
func Execute(logger *zap.Logger) error {
	rootCommand := createRootCommand(logger)
	rootCommand.SetArgs(normalizeBooleanArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// ingestFlagValues stores the raw flag bindings of the root command.
type ingestFlagValues struct {
	configPath      string
	outputTarget    string
	maxFileSize     int64
	includePatterns []string
	excludePatterns []string
	branch          string
	subpath         string
	maxFiles        int
	maxTotalBytes   int64
	tokenModel      string
	useGitignore    bool
	useIgnoreFile   bool
	copyToClipboard bool
}

// ingestOptions is the fully resolved run configuration: explicit flags win,
// then file configuration, then built-in defaults.
type ingestOptions struct {
	source          string
	outputTarget    string
	branch          string
	subpath         string
	maxFileSize     int64
	maxFiles        int
	maxTotalBytes   int64
	maxDepth        int
	cloneTimeout    time.Duration
	tokenModel      string
	includePatterns []string
	excludePatterns []string
	useGitignore    bool
	useIgnoreFile   bool
	copyToClipboard bool
}

// createRootCommand builds the root Cobra command.
func createRootCommand(logger *zap.Logger) *cobra.Command {
	var showVersion bool
	flagValues := &ingestFlagValues{}

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Example:      rootUsageExample,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return runIngestCommand(command, arguments, logger, flagValues)
		},
	}

	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&flagValues.configPath, configFlagName, "", configFlagDescription)
	registerIngestFlags(rootCommand, flagValues)
	rootCommand.AddCommand(
		createServeCommand(&flagValues.configPath),
		createConfigCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// registerIngestFlags registers digest-generation flags on the root command.
func registerIngestFlags(command *cobra.Command, values *ingestFlagValues) {
	command.Flags().StringVarP(&values.outputTarget, outputFlagName, outputFlagShorthand, defaultOutputTarget, outputFlagDescription)
	command.Flags().Int64VarP(&values.maxFileSize, maxSizeFlagName, maxSizeFlagShorthand, ingest.DefaultMaxFileSize, maxSizeFlagDescription)
	command.Flags().StringArrayVarP(&values.includePatterns, includeFlagName, includeFlagShorthand, nil, includeFlagDescription)
	command.Flags().StringArrayVarP(&values.excludePatterns, excludeFlagName, excludeFlagShorthand, nil, excludeFlagDescription)
	command.Flags().StringVarP(&values.branch, branchFlagName, branchFlagShorthand, "", branchFlagDescription)
	command.Flags().StringVar(&values.subpath, subpathFlagName, "", subpathFlagDescription)
	command.Flags().IntVar(&values.maxFiles, maxFilesFlagName, ingest.DefaultMaxFiles, maxFilesFlagDescription)
	command.Flags().Int64Var(&values.maxTotalBytes, maxTotalBytesFlagName, ingest.DefaultMaxTotalBytes, maxTotalBytesFlagDescription)
	command.Flags().StringVar(&values.tokenModel, tokenModelFlagName, "", tokenModelFlagDescription)
	registerBooleanFlag(command.Flags(), &values.useGitignore, gitignoreFlagName, true, gitignoreFlagDescription)
	registerBooleanFlag(command.Flags(), &values.useIgnoreFile, ignoreFileFlagName, true, ignoreFileFlagDescription)
	registerBooleanFlag(command.Flags(), &values.copyToClipboard, copyFlagName, false, copyFlagDescription)
}

// runIngestCommand generates one digest according to the resolved options.
func runIngestCommand(command *cobra.Command, arguments []string, logger *zap.Logger, values *ingestFlagValues) error {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
	}
	configuration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: values.configPath,
	})
	if configurationError != nil {
		return fmt.Errorf(configurationLoadErrorFormat, configurationError)
	}
	options := resolveIngestOptions(command, configuration, values, arguments)

	excludePatterns, ignoreLoadError := collectSourceExcludes(options)
	if ignoreLoadError != nil {
		fmt.Fprintf(command.ErrOrStderr(), ignoreLoadWarningFormat, options.source, ignoreLoadError)
	}
	options.excludePatterns = excludePatterns

	engine, engineError := buildEngine(logger, options)
	if engineError != nil {
		return engineError
	}
	digest, ingestError := engine.Ingest(command.Context(), ingest.Query{
		Source:          options.source,
		Branch:          options.branch,
		Subpath:         options.subpath,
		MaxFileSize:     options.maxFileSize,
		IncludePatterns: options.includePatterns,
		ExcludePatterns: options.excludePatterns,
	})
	if ingestError != nil {
		return ingestError
	}

	if writeError := writeDigest(command, options.outputTarget, digest); writeError != nil {
		return writeError
	}
	if options.copyToClipboard {
		if copyError := clipboard.NewService().Copy(digest.Text()); copyError != nil {
			fmt.Fprintf(command.ErrOrStderr(), clipboardWarningFormat, copyError)
		}
	}
	return nil
}

// resolveIngestOptions layers file configuration under explicitly set flags.
func resolveIngestOptions(command *cobra.Command, configuration config.ApplicationConfiguration, values *ingestFlagValues, arguments []string) ingestOptions {
	options := ingestOptions{
		source:          defaultSourceArgument,
		outputTarget:    values.outputTarget,
		branch:          values.branch,
		subpath:         values.subpath,
		maxFileSize:     values.maxFileSize,
		maxFiles:        values.maxFiles,
		maxTotalBytes:   values.maxTotalBytes,
		maxDepth:        configuration.Ingest.MaxDepth,
		cloneTimeout:    configuration.Ingest.CloneTimeout,
		tokenModel:      values.tokenModel,
		includePatterns: values.includePatterns,
		excludePatterns: values.excludePatterns,
		useGitignore:    values.useGitignore,
		useIgnoreFile:   values.useIgnoreFile,
		copyToClipboard: values.copyToClipboard,
	}
	if len(arguments) > 0 {
		options.source = arguments[0]
	}

	commandFlags := command.Flags()
	if !commandFlags.Changed(outputFlagName) && configuration.Ingest.Output != "" {
		options.outputTarget = configuration.Ingest.Output
	}
	if !commandFlags.Changed(maxSizeFlagName) && configuration.Ingest.MaxFileSize > 0 {
		options.maxFileSize = configuration.Ingest.MaxFileSize
	}
	if !commandFlags.Changed(maxFilesFlagName) && configuration.Ingest.MaxFiles > 0 {
		options.maxFiles = configuration.Ingest.MaxFiles
	}
	if !commandFlags.Changed(maxTotalBytesFlagName) && configuration.Ingest.MaxTotalBytes > 0 {
		options.maxTotalBytes = configuration.Ingest.MaxTotalBytes
	}
	if !commandFlags.Changed(tokenModelFlagName) && configuration.Ingest.TokenModel != "" {
		options.tokenModel = configuration.Ingest.TokenModel
	}
	if !commandFlags.Changed(gitignoreFlagName) && configuration.Ingest.UseGitignore != nil {
		options.useGitignore = *configuration.Ingest.UseGitignore
	}
	if !commandFlags.Changed(ignoreFileFlagName) && configuration.Ingest.UseIgnoreFile != nil {
		options.useIgnoreFile = *configuration.Ingest.UseIgnoreFile
	}
	if !commandFlags.Changed(copyFlagName) && configuration.Ingest.Clipboard != nil {
		options.copyToClipboard = *configuration.Ingest.Clipboard
	}
	if len(options.includePatterns) == 0 && len(configuration.Ingest.Exclude) > 0 {
		options.excludePatterns = append(options.excludePatterns, configuration.Ingest.Exclude...)
	}
	return options
}

// collectSourceExcludes merges the ignore files of a local source into the
// exclude set. Ignore files never apply in include mode because a query
// activates exactly one pattern set, and remote sources are resolved only
// inside the engine.
func collectSourceExcludes(options ingestOptions) ([]string, error) {
	excludePatterns := options.excludePatterns
	if len(options.includePatterns) > 0 {
		return excludePatterns, nil
	}
	if !options.useGitignore && !options.useIgnoreFile {
		return excludePatterns, nil
	}
	if _, isRemote := ingest.RemoteSourceURL(options.source); isRemote {
		return excludePatterns, nil
	}

	ignoreRoot := options.source
	if options.subpath != "" {
		ignoreRoot = filepath.Join(options.source, options.subpath)
	}
	if rootInfo, statError := os.Stat(ignoreRoot); statError != nil || !rootInfo.IsDir() {
		return excludePatterns, nil
	}
	ignorePatterns, loadError := config.LoadSourceIgnorePatterns(ignoreRoot, options.useGitignore, options.useIgnoreFile)
	if loadError != nil {
		return excludePatterns, loadError
	}
	return append(excludePatterns, ignorePatterns...), nil
}

// buildEngine assembles the ingestion engine shared by the root and serve
// commands from resolved options. When no token model was requested and the
// default tokenizer cannot bootstrap, the run degrades to the word estimate
// instead of failing; an explicitly requested model still fails hard.
func buildEngine(logger *zap.Logger, options ingestOptions) (*ingest.Engine, error) {
	counter, _, counterError := tokenizer.NewCounter(tokenizer.Config{Model: options.tokenModel})
	if counterError != nil {
		if options.tokenModel != "" {
			return nil, counterError
		}
		logger.Warn("tokenizer unavailable, falling back to word estimate", zap.Error(counterError))
		counter = tokenizer.WordCounter{}
	}
	return ingest.NewEngine(ingest.Config{
		Transport:     gitclone.New(logger),
		Counter:       counter,
		Logger:        logger,
		MaxFileSize:   options.maxFileSize,
		MaxFiles:      options.maxFiles,
		MaxTotalBytes: options.maxTotalBytes,
		MaxDepth:      options.maxDepth,
		CloneTimeout:  options.cloneTimeout,
	}), nil
}

// writeDigest delivers the digest to stdout or the output file, echoing the
// summary so file runs still show what was produced.
func writeDigest(command *cobra.Command, outputTarget string, digest ingest.Digest) error {
	if outputTarget == stdoutOutputTarget {
		fmt.Fprint(command.OutOrStdout(), digest.Text())
		return nil
	}
	if writeError := os.WriteFile(outputTarget, []byte(digest.Text()), 0o644); writeError != nil {
		return fmt.Errorf(digestWriteErrorFormat, outputTarget, writeError)
	}
	fmt.Fprint(command.OutOrStdout(), digest.Summary)
	fmt.Fprintf(command.OutOrStdout(), digestWrittenMessageFormat, outputTarget)
	return nil
}
