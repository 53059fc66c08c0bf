package main

import (
	"flag"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"quizmaster/internal/config"
	"quizmaster/internal/db"
	"quizmaster/internal/server"
)

type questionFile struct {
	Session   string                 `yaml:"session"`
	Questions []server.QuestionInput `yaml:"questions"`
}

func main() {
	filePath := flag.String("file", "questions.yaml", "path to question set yaml")
	sessionID := flag.String("session", "", "target session id (overrides the file's session field)")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	conn, err := db.Open()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	set, err := readQuestions(*filePath)
	if err != nil {
		log.Fatalf("failed to read questions: %v", err)
	}
	target := set.Session
	if *sessionID != "" {
		target = *sessionID
	}
	if target == "" {
		log.Fatal("no session id: pass -session or set session in the file")
	}

	registry := server.NewRegistry(conn)
	if err := registry.Ensure(target); err != nil {
		log.Fatalf("failed to ensure session: %v", err)
	}
	count, err := server.NewBank(conn).ReplaceAll(target, set.Questions)
	if err != nil {
		log.Fatalf("failed to replace question set: %v", err)
	}
	log.Printf("loaded %d questions into session %s", count, target)
}

func readQuestions(path string) (questionFile, error) {
	var set questionFile
	data, err := os.ReadFile(path)
	if err != nil {
		return set, err
	}
	if err := yaml.Unmarshal(data, &set); err != nil {
		return set, err
	}
	return set, nil
}
