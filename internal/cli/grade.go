package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/projection"
	"quiz-attempt-service/internal/scoring"
)

// gradeFixture is a quiz, its questions and one set of answers keyed by question id.
type gradeFixture struct {
	Quiz      domain.QuizRecord       `yaml:"quiz"`
	Questions []domain.QuestionRecord `yaml:"questions"`
	Answers   map[string]string       `yaml:"answers"`
}

// NewGradeCmd scores a fixture offline and prints the result as JSON.
func NewGradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grade <fixture.yaml>",
		Short: "Score a set of answers against a quiz without a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var fx gradeFixture
			if err := yaml.Unmarshal(data, &fx); err != nil {
				return fmt.Errorf("parse fixture: %w", err)
			}
			quiz, err := projection.Project(fx.Quiz, fx.Questions, nil)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(scoring.Score(quiz, fx.Answers))
		},
	}
}
