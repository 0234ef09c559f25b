// cmd/question-importer - Loads a JSON file of trivia questions into the question bank
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"proofofcrab/database"
	"proofofcrab/models"

	"github.com/joho/godotenv"
	"gorm.io/datatypes"
)

// JSONQuestion is one entry of the import file.
type JSONQuestion struct {
	Position        int      `json:"position"`
	Prompt          string   `json:"prompt"`
	ImageURL        string   `json:"image_url"`
	ProposedAnswers []string `json:"proposed_answers"`
	CorrectAnswer   string   `json:"correct_answer"`
}

// parseQuestions decodes the file and drops malformed entries. Entries without
// a position are numbered in file order.
func parseQuestions(data []byte, frameID string) ([]models.Question, []string, error) {
	var entries []JSONQuestion
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	var questions []models.Question
	var skipped []string
	for i, e := range entries {
		position := e.Position
		if position == 0 {
			position = i + 1
		}
		answers := make([]string, len(e.ProposedAnswers))
		for j, a := range e.ProposedAnswers {
			answers[j] = strings.TrimSpace(a)
		}
		q := models.Question{
			FrameID:         frameID,
			Position:        position,
			Prompt:          strings.TrimSpace(e.Prompt),
			ImageURL:        strings.TrimSpace(e.ImageURL),
			ProposedAnswers: datatypes.NewJSONType(answers),
			CorrectAnswer:   strings.TrimSpace(e.CorrectAnswer),
		}
		if !q.Valid() {
			skipped = append(skipped, fmt.Sprintf("entry %d: needs %d answers including the correct one", i+1, models.ProposedAnswerCount))
			continue
		}
		if q.Prompt == "" && q.ImageURL == "" {
			skipped = append(skipped, fmt.Sprintf("entry %d: needs a prompt or an image", i+1))
			continue
		}
		questions = append(questions, q)
	}
	return questions, skipped, nil
}

func main() {
	_ = godotenv.Load()

	file := flag.String("file", "./data/questions.json", "JSON file of questions")
	frameID := flag.String("frame", "", "scope the questions to this frame id (empty = global bank)")
	driver := flag.String("driver", envOr("DB_DRIVER", "postgres"), "database driver: postgres, mysql or sqlite")
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "database connection string")
	dryRun := flag.Bool("dry-run", false, "validate the file without writing")
	flag.Parse()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("Failed to read JSON file:", err)
	}

	questions, skipped, err := parseQuestions(data, *frameID)
	if err != nil {
		log.Fatal(err)
	}
	for _, s := range skipped {
		fmt.Printf("Skipping %s\n", s)
	}
	fmt.Printf("Found %d valid questions (%d skipped)\n", len(questions), len(skipped))

	if *dryRun || len(questions) == 0 {
		return
	}
	if *dsn == "" {
		log.Fatal("DATABASE_URL or -dsn is required")
	}

	db, err := database.Open(database.Options{Driver: *driver, DSN: *dsn})
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)

	repo := database.NewRepository(db)
	if err := repo.CreateQuestions(context.Background(), questions); err != nil {
		log.Fatal("Failed to import questions:", err)
	}

	all, err := repo.GetQuestions(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("✓ Imported %d questions, %d in the bank\n", len(questions), len(all))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
