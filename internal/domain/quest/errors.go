package quest

import (
	"github.com/google/uuid"

	"github.com/questboard/questboard-api/internal/pkg/apperror"
)

func questNotFound(id uuid.UUID) error {
	return apperror.NotFound("quest %s not found", id)
}

func submissionNotFound(id uuid.UUID) error {
	return apperror.NotFound("submission %s not found", id)
}
