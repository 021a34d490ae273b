package main

import (
	"github.com/spf13/cobra"

	"imagegallery/internal/database"
	"imagegallery/internal/server"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := server.Migrate(db); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}
