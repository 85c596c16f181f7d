package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/config"
)

// NewSeedCmd imports a YAML catalog into the configured document store.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a catalog of courses, quizzes and questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			if file == "" {
				file = cfg.Storage.Seed
			}
			catalog, err := loadCatalog(file)
			if err != nil {
				return err
			}

			b, err := openBackend(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer b.Close()
			if b.importer == nil {
				return fmt.Errorf("storage driver %q is not persistent; the memory driver reads storage.seed at start", cfg.Storage.Driver)
			}
			if err := b.importer.ImportCatalog(cmd.Context(), catalog); err != nil {
				return err
			}
			logger.WithFields(map[string]interface{}{
				"courses":   len(catalog.Courses),
				"quizzes":   len(catalog.Quizzes),
				"questions": len(catalog.Questions),
			}).Info("catalog imported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML (defaults to storage.seed)")
	return cmd
}
