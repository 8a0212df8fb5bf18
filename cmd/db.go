package cmd

import (
	"github.com/emrgen/panorama/internal/config"
	"github.com/emrgen/panorama/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "db commands",
}

func init() {
	dbCmd.AddCommand(Migrate())
}

func Migrate() *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database",
		Run: func(cmd *cobra.Command, args []string) {
			db := config.GetDb(config.LoadConfig())
			err := model.Migrate(db)
			if err != nil {
				logrus.Fatalf("migration failed: %v", err)
			}
			logrus.Infof("database migrated")
		},
	}

	return command
}
