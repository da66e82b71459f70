package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable means the AI service could not be reached.
	ErrUnavailable = errors.New("ai service unavailable")
	// ErrTimeout means the AI service did not answer within the operation deadline.
	ErrTimeout = errors.New("ai service timed out")
)

// StatusError carries a non-2xx answer of the AI service.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai service status %d: %s", e.Status, e.Body)
}

// HTTPStatus maps a client error to the status a proxy should answer with.
func HTTPStatus(err error) int {
	var statusErr *StatusError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &statusErr):
		return statusErr.Status
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Suggestions lists the alternatives offered when text cannot be extracted
// server side.
var Suggestions = []string{
	`Utilisez l'onglet "Scan Caméra" pour l'OCR automatique`,
	`Ou copiez le texte manuellement dans "Coller Texte"`,
	"Ou convertissez le PDF en DOCX",
}

// Guidance is a user-facing French explanation of a failure.
type Guidance struct {
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// GuidanceFor explains err to an end user. Errors without specific advice
// produce an empty Guidance.
func GuidanceFor(err error) Guidance {
	switch {
	case errors.Is(err, ErrTimeout):
		return Guidance{
			Message:     "L'analyse a pris trop de temps. Réessayez avec un document plus court.",
			Suggestions: Suggestions,
		}
	case errors.Is(err, ErrUnavailable):
		return Guidance{
			Message:     "Le service d'analyse IA est indisponible pour le moment.",
			Suggestions: Suggestions,
		}
	}
	return Guidance{}
}
