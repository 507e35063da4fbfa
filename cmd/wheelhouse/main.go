package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"
	"gopkg.in/yaml.v3"

	wheelhouse "github.com/wheelhouse-dev/wheelhouse"
	"github.com/wheelhouse-dev/wheelhouse/tags"
)

var (
	distsDir         string
	manifestPath     string
	targetPath       string
	platformSpec     string
	ambientPath      []string
	ignoreUnresolved bool
	verbose          bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wheelhouse",
		Short: "Resolve and activate bundled distributions for an execution target",
		Long:  "wheelhouse selects, per required project, the distribution from a bundle's candidate pool that is binary-compatible with a target, resolves transitive requirements, and computes the module search path a host process would activate.",
	}

	rootCmd.PersistentFlags().StringVarP(&distsDir, "dists", "d", "./dists", "Distribution metadata directory")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "./manifest.yaml", "Manifest path")
	rootCmd.PersistentFlags().StringVarP(&targetPath, "target", "t", "", "Complete platform description file")
	rootCmd.PersistentFlags().StringVarP(&platformSpec, "platform", "p", "", "Abbreviated platform, e.g. cp311-cp311-manylinux_2_17_x86_64")
	rootCmd.PersistentFlags().BoolVar(&ignoreUnresolved, "ignore-unresolved", false, "Tolerate unsatisfiable requirements")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved distribution set for the manifest",
		RunE:  runResolve,
	}

	activateCmd := &cobra.Command{
		Use:   "activate",
		Short: "Print the activated module search path",
		RunE:  runActivate,
	}
	activateCmd.Flags().StringArrayVar(&ambientPath, "ambient", nil, "Ambient search path entry (repeatable)")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(activateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildEnvironment() (*wheelhouse.Environment, *wheelhouse.Manifest, error) {
	target, err := loadTarget()
	if err != nil {
		return nil, nil, err
	}

	manifest, err := wheelhouse.LoadManifest(manifestPath)
	if err != nil {
		return nil, nil, err
	}

	pool, err := wheelhouse.LoadPool(distsDir)
	if err != nil {
		return nil, nil, err
	}

	var opts []wheelhouse.Option
	if ignoreUnresolved {
		opts = append(opts, wheelhouse.WithIgnoreUnresolved(true))
	}

	env, err := wheelhouse.NewEnvironment(pool, manifest, target, opts...)
	if err != nil {
		return nil, nil, err
	}
	return env, manifest, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := loggingContext(cmd)

	env, _, err := buildEnvironment()
	if err != nil {
		return err
	}

	dists, err := env.Resolve(ctx)
	if err != nil {
		return err
	}

	for _, dist := range dists {
		fmt.Fprintln(cmd.OutOrStdout(), dist)
	}
	return nil
}

func runActivate(cmd *cobra.Command, args []string) error {
	ctx := loggingContext(cmd)

	env, manifest, err := buildEnvironment()
	if err != nil {
		return err
	}

	site := wheelhouse.NewSite(manifest.Inheritance, ambientPath...)
	if _, err := env.Activate(ctx, site); err != nil {
		return err
	}

	for _, path := range site.Paths() {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}

// loggingContext wires a slog handler onto the command context so engine
// debug output follows the --verbose flag.
func loggingContext(cmd *cobra.Command) context.Context {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	return slogcontext.NewCtx(cmd.Context(), slog.New(handler))
}

// targetDoc is the serialized complete platform description.
type targetDoc struct {
	ID      string            `yaml:"id"`
	Tags    []string          `yaml:"tags"`
	Markers map[string]string `yaml:"markers"`
}

func loadTarget() (wheelhouse.Target, error) {
	switch {
	case targetPath != "" && platformSpec != "":
		return nil, fmt.Errorf("--target and --platform are mutually exclusive")
	case platformSpec != "":
		return wheelhouse.NewAbstractPlatform(platformSpec)
	case targetPath != "":
		data, err := os.ReadFile(targetPath)
		if err != nil {
			return nil, fmt.Errorf("read target description: %w", err)
		}
		var doc targetDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse target description: %w", err)
		}
		supported := make([]tags.Tag, 0, len(doc.Tags))
		for _, raw := range doc.Tags {
			tag, err := tags.ParseTag(raw)
			if err != nil {
				return nil, fmt.Errorf("target description: %w", err)
			}
			supported = append(supported, tag)
		}
		return wheelhouse.NewCompletePlatform(doc.ID, supported, doc.Markers)
	default:
		return nil, fmt.Errorf("one of --target or --platform is required")
	}
}
