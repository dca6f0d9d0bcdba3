package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"courseforge/internal/app"
	"courseforge/internal/config"
	"courseforge/internal/logger"
	"courseforge/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	skeletonPath string
	outputPath   string
	pretty       bool

	rootCmd = &cobra.Command{
		Use:   "coursegen",
		Short: "Generate course content from an outline without the API server",
	}

	enrichCmd = &cobra.Command{
		Use:   "enrich",
		Short: "Enrich every module of a course outline and print the content as JSON",
		RunE:  runEnrich,
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check a course outline without calling any external service",
		RunE:  runValidate,
	}
)

func init() {
	for _, cmd := range []*cobra.Command{enrichCmd, validateCmd} {
		cmd.Flags().StringVarP(&skeletonPath, "file", "f", "", "course outline (.yaml, .yml or .json)")
		_ = cmd.MarkFlagRequired("file")
	}
	enrichCmd.Flags().StringVarP(&outputPath, "out", "o", "", "write the result to a file instead of stdout")
	enrichCmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")

	rootCmd.AddCommand(enrichCmd, validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	skeleton, err := loadSkeleton(skeletonPath)
	if err != nil {
		return err
	}
	if err := service.ValidateSkeleton(validator.New(validator.WithRequiredStructEnabled()), skeleton); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d modules OK\n", skeleton.ID, len(skeleton.Modules))
	return nil
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	log := logger.New()
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	skeleton, err := loadSkeleton(skeletonPath)
	if err != nil {
		return err
	}
	if err := service.ValidateSkeleton(validator.New(validator.WithRequiredStructEnabled()), skeleton); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipeline, err := app.BuildPipeline(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}
	defer pipeline.Close()

	agg, err := pipeline.Run(ctx, skeleton)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return writeContent(out, agg, pretty)
}

func writeContent(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
