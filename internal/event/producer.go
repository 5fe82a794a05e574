package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shari-ar/Assets/internal/domain"
	pkgkafka "github.com/shari-ar/Assets/pkg/kafka"
)

// Kafka topics for auth domain events.
const (
	TopicUserRegistered = "assets.auth.user_registered"
	TopicUserLoggedIn   = "assets.auth.user_logged_in"
)

const (
	aggregateTypeUser = "user"
	sourceAuthService = "auth-service"
)

// UserRegisteredData is the payload for a user_registered event.
type UserRegisteredData struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// UserLoggedInData is the payload for a user_logged_in event.
type UserLoggedInData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Producer publishes auth domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishUserRegistered publishes a user_registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      string(user.Role),
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, aggregateTypeUser, sourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user_registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user_registered event: %w", err)
	}

	return nil
}

// PublishUserLoggedIn publishes a user_logged_in event.
func (p *Producer) PublishUserLoggedIn(ctx context.Context, user *domain.User) error {
	data := UserLoggedInData{
		ID:    user.ID,
		Email: user.Email,
		Role:  string(user.Role),
	}

	event, err := pkgkafka.NewEvent(TopicUserLoggedIn, user.ID, aggregateTypeUser, sourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user_logged_in event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserLoggedIn, event); err != nil {
		return fmt.Errorf("publish user_logged_in event: %w", err)
	}

	return nil
}
