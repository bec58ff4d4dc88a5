package db

import (
	"context"
	"fmt"

	"github.com/Hazher89/oppdrag-app/pkg/db/models"
)

// AutoMigrate syncs the schema for every registered model. Intended for dev
// environments behind the auto-migrate flag.
func (c *Client) AutoMigrate(ctx context.Context) error {
	err := c.conn.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Assignment{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
	)
	if err != nil {
		return fmt.Errorf("running auto migrations: %w", err)
	}
	return nil
}
