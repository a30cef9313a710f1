package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/databases"
	"github.com/rvi-ar/casos-api/models"
	"github.com/rvi-ar/casos-api/notifier"
	templates "github.com/rvi-ar/casos-api/templates/html"
)

// MinPasswordLength is the shortest password accepted for a member
const MinPasswordLength = 10

var (
	errMemberExists   = errors.New("a member with that email already exists")
	errMemberNotFound = errors.New("member not found")
)

type memberFlags struct {
	email    string
	name     string
	password string
	welcome  bool
}

func newMemberCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage the NGO members allowed to sign in",
	}
	cmd.AddCommand(newMemberCreateCmd(root), newMemberPasswordCmd(root))
	return cmd
}

func newMemberCreateCmd(root *rootFlags) *cobra.Command {
	var flags memberFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a member with a password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), root, func(conf *config.Config, db databases.DatabaseHelper) error {
				m, err := createMember(cmd.Context(), databases.NewMemberDatabase(db), flags.email, flags.name, flags.password, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "member %s created (%s)\n", m.Email, m.ID.Hex())
				if !flags.welcome {
					return nil
				}
				if err := notifier.New(conf.Mail).Send(cmd.Context(), welcomeMessage(m, conf.BaseURL)); err != nil {
					return fmt.Errorf("sending welcome email: %w", err)
				}
				return nil
			})
		},
	}
	addMemberFlags(cmd, &flags)
	cmd.Flags().StringVarP(&flags.name, "name", "n", "", "Display name")
	cmd.Flags().BoolVar(&flags.welcome, "welcome", false, "Email the member how to sign in")
	return cmd
}

func newMemberPasswordCmd(root *rootFlags) *cobra.Command {
	var flags memberFlags
	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Replace a member's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), root, func(_ *config.Config, db databases.DatabaseHelper) error {
				if err := setMemberPassword(cmd.Context(), databases.NewMemberDatabase(db), flags.email, flags.password); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", flags.email)
				return nil
			})
		},
	}
	addMemberFlags(cmd, &flags)
	return cmd
}

func addMemberFlags(cmd *cobra.Command, flags *memberFlags) {
	cmd.Flags().StringVarP(&flags.email, "email", "e", "", "Member email (required)")
	cmd.Flags().StringVarP(&flags.password, "password", "p", "", "Password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
}

func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func createMember(ctx context.Context, members databases.MemberDatabase, email, name, password string, now time.Time) (*models.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	_, err := members.FindOne(ctx, bson.M{"email": email})
	switch {
	case err == nil:
		return nil, errMemberExists
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("checking existing member: %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	m := models.Member{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    primitive.NewDateTimeFromTime(now),
	}
	m.ID, err = members.InsertOne(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("inserting member: %w", err)
	}
	return &m, nil
}

func welcomeMessage(m *models.Member, baseURL string) notifier.Message {
	greeting := "Hola"
	if m.Name != "" {
		greeting = "Hola " + m.Name
	}
	subject := "Bienvenida al registro de casos"
	body := fmt.Sprintf("%s,\n\nYa tenés acceso al registro de casos con el email %s.\nIngresá en %s con tu contraseña o pedí un enlace de acceso.\n",
		greeting, m.Email, strings.TrimSuffix(baseURL, "/"))
	return notifier.Message{
		To:      []string{m.Email},
		ToName:  m.Name,
		Subject: subject,
		HTML:    templates.RenderGenericEmail(subject, body),
		Text:    body,
	}
}

func setMemberPassword(ctx context.Context, members databases.MemberDatabase, email, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	matched, err := members.UpdateOne(ctx,
		bson.M{"email": strings.ToLower(strings.TrimSpace(email))},
		bson.M{"$set": bson.M{"password_hash": hash}},
	)
	if err != nil {
		return fmt.Errorf("updating member: %w", err)
	}
	if matched == 0 {
		return errMemberNotFound
	}
	return nil
}
