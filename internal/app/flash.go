package app

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lalith-99/echocrm/internal/apperr"
	"github.com/lalith-99/echocrm/internal/repository"
)

// FlashAutoDismiss is how long a success message stays up.
const FlashAutoDismiss = 5 * time.Second

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is the transient message shown after an action. Error flashes have
// no AutoDismiss and stay until the next action.
type Flash struct {
	Kind        FlashKind
	Text        string
	AutoDismiss time.Duration
}

// MarshalJSON reports AutoDismiss in milliseconds, 0 meaning "stay".
func (f Flash) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind          FlashKind `json:"kind"`
		Text          string    `json:"text"`
		AutoDismissMS int64     `json:"auto_dismiss_ms"`
	}{f.Kind, f.Text, f.AutoDismiss.Milliseconds()})
}

func success(text string) Flash {
	return Flash{Kind: FlashSuccess, Text: text, AutoDismiss: FlashAutoDismiss}
}

// failure picks the text for a failed action: the validation or auth
// message when there is one, a "no longer exists" note for stale records,
// a "saved but not refreshed" note when only the reload failed, otherwise
// fallback.
func failure(err error, fallback string) Flash {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case apperr.KindValidation, apperr.KindAuth:
			return Flash{Kind: FlashError, Text: ae.Message}
		case apperr.KindNotFound:
			return Flash{Kind: FlashError, Text: notFoundText(ae.Code)}
		case apperr.KindStore:
			if ae.Code == apperr.CodeRefresh {
				return Flash{Kind: FlashError, Text: ae.Message}
			}
		}
	}
	return Flash{Kind: FlashError, Text: fallback}
}

func notFoundText(collection string) string {
	switch collection {
	case repository.CollectionLeads:
		return "This lead no longer exists"
	case repository.CollectionReminders:
		return "This reminder no longer exists"
	default:
		return "This record no longer exists"
	}
}
