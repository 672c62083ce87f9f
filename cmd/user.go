package cmd

import (
	"context"
	"fmt"

	"example.com/medipi/hub/config"
	"example.com/medipi/hub/internal/database"
	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/repository"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	userEmail    string
	userName     string
	userPassword string
	userRole     string
)

// userCmd represents the user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage dashboard users",
	Long:  `Create dashboard user accounts without going through the API.`,
}

// createUserCmd represents the create command
var createUserCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new dashboard user",
	Long: `Create a new dashboard user with a role:
  admin: full administrative access
  staff: regular care-staff access`,
	Run: func(cmd *cobra.Command, args []string) {
		createUser()
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(createUserCmd)

	createUserCmd.Flags().StringVarP(&userEmail, "email", "e", "", "Email address (required)")
	createUserCmd.Flags().StringVarP(&userName, "name", "n", "", "Display name")
	createUserCmd.Flags().StringVarP(&userPassword, "password", "p", "", "Password (required)")
	createUserCmd.Flags().StringVarP(&userRole, "role", "r", "staff", "Role (admin or staff)")
	createUserCmd.MarkFlagRequired("email")
	createUserCmd.MarkFlagRequired("password")
}

// createUser creates a dashboard user directly in the database
func createUser() {
	role := models.UserRole(userRole)
	if role != models.RoleAdmin && role != models.RoleStaff {
		log.Fatalf("Invalid role %q. Must be admin or staff.", userRole)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	log.Info("Connecting to database...")
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize repository
	repo := repository.NewRepository(db)

	hash, err := bcrypt.GenerateFromPassword([]byte(userPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        userEmail,
		Name:         userName,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}

	if err := repo.CreateUser(context.Background(), user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Println("=================================================================")
	fmt.Println("User created successfully!")
	fmt.Println("=================================================================")
	fmt.Printf("ID:    %s\n", user.ID)
	fmt.Printf("Email: %s\n", user.Email)
	fmt.Printf("Role:  %s\n", user.Role)
	fmt.Println("=================================================================")
}
