package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"essay-tutor-backend/internal/config"
	"essay-tutor-backend/internal/db"
	"essay-tutor-backend/internal/llm"
	"essay-tutor-backend/internal/model"
	"essay-tutor-backend/internal/repository"
	"essay-tutor-backend/internal/service"
	"essay-tutor-backend/utilities"
)

// seed creates a demo student with one sample essay and a FREE subscription.
func main() {
	email := flag.String("email", "demo@example.com", "demo account email")
	fullName := flag.String("name", "示範學生", "demo account full name")
	grade := flag.String("grade", "國中二年級", "demo account grade level")
	flag.Parse()

	// Load XML configuration from file.
	cfg, err := config.LoadConfig("config.xml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := db.InitDBFromConfig(cfg); err != nil {
		log.Fatalf("failed to init database: %v", err)
	}
	conn := db.GetDB()
	defer db.Close(conn)

	password, err := readPassword()
	if err != nil {
		log.Fatalf("failed to read password: %v", err)
	}

	ctx := context.Background()
	authService := service.NewAuthService(repository.NewUserRepository(conn), bcrypt.DefaultCost)
	user, err := authService.Register(ctx, service.RegisterInput{
		Email:      *email,
		Password:   password,
		FullName:   *fullName,
		GradeLevel: grade,
	})
	if err != nil {
		log.Fatalf("failed to create demo user: %v", err)
	}

	essays := service.NewEssayService(repository.NewEssayRepository(conn), llm.NewHeuristicWriter(cfg.AI.Seed), utilities.NewEventBus())
	essay, err := essays.Create(ctx, user.ID, service.CreateEssayInput{
		GradeLevel:   *grade,
		EssayType:    "記敘文",
		Requirements: "描寫一次讓你改變想法的經驗",
		Prompt:       "那一次，我學會了堅持",
	})
	if err != nil {
		log.Fatalf("failed to create sample essay: %v", err)
	}

	subs := service.NewSubscriptionService(repository.NewSubscriptionRepository(conn))
	if _, err := subs.Upsert(ctx, user.ID, model.PlanFree); err != nil {
		log.Fatalf("failed to create subscription: %v", err)
	}

	fmt.Printf("seeded user %s (%s) with essay %s\n", user.Email, user.ID, essay.ID)
}

// readPassword prompts without echo on a terminal and reads a line from
// stdin otherwise.
func readPassword() (string, error) {
	var password string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		password = string(raw)
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	return password, nil
}
