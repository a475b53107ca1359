package handlers

import (
	"context"
	"log/slog"

	"conduit/internal/events"
)

// Security writes the authentication audit trail.
type Security struct {
	logger *slog.Logger
}

func NewSecurity(logger *slog.Logger) *Security {
	return &Security{logger: logger}
}

func (s *Security) OnLoginAttempted(ctx context.Context, evt events.UserLoginAttempted) error {
	if evt.Success {
		s.logger.InfoContext(ctx, "login succeeded",
			"email", evt.Email,
			"ip", evt.IP,
			"browser", evt.Browser,
			"os", evt.OS,
		)
		return nil
	}
	s.logger.WarnContext(ctx, "login failed",
		"email", evt.Email,
		"ip", evt.IP,
		"browser", evt.Browser,
		"os", evt.OS,
	)
	return nil
}

func (s *Security) OnPasswordChanged(ctx context.Context, evt events.UserPasswordChanged) error {
	s.logger.InfoContext(ctx, "password changed",
		"user_id", evt.UserID,
		"username", evt.Username,
	)
	return nil
}
