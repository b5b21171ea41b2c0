package interview

import (
	"errors"
	"fmt"

	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

// Domain errors.
var (
	ErrSessionActive    = errors.New("interview already in progress for member")
	ErrInterviewTimeout = fmt.Errorf("interview answer not received in time: %w", apperrors.ErrTimeout)
	ErrInterviewFailed  = errors.New("interview failed")
	ErrNoQuestions      = errors.New("no interview questions configured")
)
