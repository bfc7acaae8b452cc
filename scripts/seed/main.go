// Command seed populates a development database with an admin user, a
// sample roster and classrooms with their seat grids.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/exam-seat-api/internal/models"
	"github.com/noah-isme/exam-seat-api/internal/repository"
	"github.com/noah-isme/exam-seat-api/pkg/config"
	"github.com/noah-isme/exam-seat-api/pkg/database"
)

var branches = []string{"CSE", "AIDS", "ECE", "ME"}

func main() {
	var (
		adminEmail    string
		adminPassword string
		perCohort     int
	)
	flag.StringVar(&adminEmail, "admin-email", "admin@example.edu", "admin account email")
	flag.StringVar(&adminPassword, "admin-password", "admin123", "admin account password")
	flag.IntVar(&perCohort, "students", 25, "students to create per cohort")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	users := repository.NewUserRepository(db)
	students := repository.NewStudentRepository(db)
	classrooms := repository.NewClassroomRepository(db)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}
	admin := &models.User{
		ID:           uuid.NewString(),
		Email:        adminEmail,
		FullName:     "Exam Cell Admin",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}
	log.Printf("created admin %s", adminEmail)

	for _, branch := range branches {
		for year := 1; year <= 4; year++ {
			room := &models.Classroom{
				Name:        fmt.Sprintf("%s-%d Hall", branch, year),
				Branch:      branch,
				Year:        year,
				Cols:        5,
				SeatsPerCol: 6,
			}
			if err := classrooms.Create(ctx, room); err != nil {
				log.Fatalf("failed to create classroom %s: %v", room.Name, err)
			}

			for i := 1; i <= perCohort; i++ {
				student := &models.Student{
					RollNumber: fmt.Sprintf("%s%d-%03d", branch, year, i),
					FullName:   fmt.Sprintf("%s Student %d-%d", branch, year, i),
					Branch:     branch,
					Year:       year,
					Email:      fmt.Sprintf("%s%d.%03d@example.edu", branch, year, i),
				}
				if err := students.Create(ctx, student); err != nil {
					log.Fatalf("failed to create student %s: %v", student.RollNumber, err)
				}
			}
			log.Printf("seeded cohort %s year %d: %d students, classroom %q (%d seats)",
				branch, year, perCohort, room.Name, room.Capacity)
		}
	}

	log.Println("seed complete")
}
