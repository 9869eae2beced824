package charette

import "github.com/eldtechnologies/charette/internal/models"

// Errors returned by Service. They alias the model sentinels so that clients
// which never link the stores can still match them with errors.Is.
var (
	ErrNotFound         = models.ErrNotFound
	ErrEmptyText        = models.ErrEmptyText
	ErrEmptyUserName    = models.ErrEmptyUserName
	ErrInvalidRole      = models.ErrInvalidRole
	ErrEmptyTitle       = models.ErrEmptyTitle
	ErrInvalidRoomCount = models.ErrInvalidRoomCount
	ErrInvalidDirection = models.ErrInvalidDirection
)
