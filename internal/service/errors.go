package service

import (
	"errors"

	"github.com/deskflow-io/deskflow-ce/internal/repository"
)

// Caller-visible failures. Downstream provider errors (LLM, email, scraper)
// never surface here; they degrade to fallbacks inside the services.
var (
	ErrTicketNotFound   = repository.ErrTicketNotFound
	ErrUserNotFound     = repository.ErrUserNotFound
	ErrPermissionDenied = errors.New("only agents can send AI replies")
	ErrInvalidStatus    = errors.New("invalid ticket status")
	ErrInvalidPriority  = errors.New("invalid ticket priority")
)
