package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/emrgen/panorama/internal/config"
	"github.com/emrgen/panorama/internal/service"
	"github.com/emrgen/panorama/internal/store"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// services are the services a command runs against, built from the
// environment configuration.
type services struct {
	projects *service.ProjectService
	photos   *service.PanophotoService
}

func newServices(ctx context.Context) *services {
	cfg := config.LoadConfig()
	config.SetupLogging(cfg)

	records := store.NewGormStore(config.GetDb(cfg))
	if err := records.Migrate(); err != nil {
		logrus.Fatalf("failed to migrate database: %v", err)
	}

	blobs, err := config.NewBlobStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to open blob store: %v", err)
	}

	photoCache, err := config.NewCache(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to open cache: %v", err)
	}

	projects := service.NewProjectService(records, blobs, photoCache)

	return &services{
		projects: projects,
		photos:   service.NewPanophotoService(records, blobs, photoCache, projects),
	}
}

// checkRequired prints the missing flags and reports whether all were set.
func checkRequired(command *cobra.Command, names ...string) bool {
	var missing []string
	for _, name := range names {
		if !command.Flags().Changed(name) {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		color.Red("missing: %v", missing)
		return false
	}
	return true
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Println("error encoding output: ", err)
	}
}

func printWarnings(result *service.CascadeResult) {
	if result == nil {
		return
	}
	for _, warning := range result.Warnings {
		color.Yellow("warning: %v", warning)
	}
}

func fail(err error) {
	color.Red("%v", err)
	os.Exit(1)
}
