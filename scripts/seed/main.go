package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"vendzz/internal/config"
)

// ANSI color codes for terminal output
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
)

var (
	leadsCount = flag.Int("leads", 20, "Number of quiz submissions to create")
	clearData  = flag.Bool("clear", false, "Clear existing seed data before inserting")
)

var firstNames = []string{
	"Ana", "Bruno", "Carla", "Diego", "Elisa", "Felipe", "Gabriela",
	"Hugo", "Isabela", "João", "Larissa", "Marcos", "Natália", "Otávio",
}

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}

	printInfo("Connecting to database...")
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		printError(fmt.Sprintf("Failed to open database connection: %v", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		printError(fmt.Sprintf("Failed to ping database: %v", err))
		os.Exit(1)
	}
	printSuccess("Connected to database")

	if *clearData {
		if err := clearSeedData(db); err != nil {
			printError(fmt.Sprintf("Failed to clear seed data: %v", err))
			os.Exit(1)
		}
		printSuccess("Cleared existing seed data")
	}

	accountID, token, err := seedAccount(db)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed account: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Account created, API token: %s", token))

	quizID, err := seedQuiz(db, accountID)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed quiz: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Quiz created: %s", quizID))

	created, err := seedSubmissions(db, quizID, *leadsCount)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed submissions: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Created %d quiz submissions", created))
}

func clearSeedData(db *sql.DB) error {
	statements := []string{
		`DELETE FROM delivery_counters`,
		`DELETE FROM delivery_records`,
		`DELETE FROM campaigns`,
		`DELETE FROM quiz_submissions`,
		`DELETE FROM quizzes`,
		`DELETE FROM accounts`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func seedAccount(db *sql.DB) (string, string, error) {
	id := uuid.NewString()
	token := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO accounts (id, name, api_token, sms_credits, email_credits, whatsapp_credits)
		 VALUES ($1, $2, $3, 1000, 1000, 1000)`,
		id, "Demo Account", token,
	)
	return id, token, err
}

func seedQuiz(db *sql.DB, ownerID string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO quizzes (id, owner_id, title) VALUES ($1, $2, $3)`,
		id, ownerID, "Quiz de Emagrecimento",
	)
	return id, err
}

func seedSubmissions(db *sql.DB, quizID string, count int) (int, error) {
	created := 0
	for i := 0; i < count; i++ {
		name := firstNames[i%len(firstNames)]
		variables, _ := json.Marshal(map[string]string{
			"nome": name,
			"dias": fmt.Sprintf("%d", 3+i%5),
		})

		_, err := db.Exec(
			`INSERT INTO quiz_submissions (quiz_id, identity, variables, is_complete, submitted_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			quizID,
			fmt.Sprintf("+55119%07d", 1000000+i),
			variables,
			i%3 != 0, // every third lead abandoned the quiz
			time.Now().Add(-time.Duration(count-i)*time.Minute),
		)
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func printInfo(msg string)    { fmt.Println(colorCyan + msg + colorReset) }
func printSuccess(msg string) { fmt.Println(colorGreen + msg + colorReset) }
func printError(msg string)   { fmt.Println(colorRed + msg + colorReset) }
