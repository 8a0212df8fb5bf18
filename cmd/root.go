package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pano",
	Short: "panorama project management tool",
	Example: `pano serve
pano db migrate
pano project create -n <name>
pano project level create -p <project-id> -n <name>
pano photo upload -p <project-id> -n <name> -f <image>
pano photo move -i <photo-id> -x 0.5 -y 0.25 -l <level-id>
pano link add -s <photo-id> -t <photo-id>
pano link offset -s <photo-id> -t <photo-id> -o 15
pano link repair`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(serveCmd())
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}
