// Package toast renders transient notices as a stacked corner overlay.
package toast

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"mapleboard/internal/store"
	"mapleboard/internal/ui/styles"
)

// Toast is one visible notice with an expiry.
type Toast struct {
	Level   store.NoticeLevel
	Message string
	Expires time.Time
}

// FromNotice converts a store notice, giving errors a longer lifetime.
func FromNotice(n store.Notice) Toast {
	ttl := 3 * time.Second
	if n.Level == store.NoticeError {
		ttl = 8 * time.Second
	}
	return Toast{Level: n.Level, Message: n.Message, Expires: time.Now().Add(ttl)}
}

// Expire drops toasts past their expiry, preserving order.
func Expire(toasts []Toast, now time.Time) []Toast {
	kept := toasts[:0]
	for _, t := range toasts {
		if t.Expires.After(now) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Renderer draws the toast stack.
type Renderer struct {
	styles *styles.Styles
}

func New(s *styles.Styles) *Renderer {
	return &Renderer{styles: s}
}

// Render stacks toasts vertically, right-aligned. Empty when nothing to show.
func (r *Renderer) Render(toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}

	toastWidth := width / 3
	if toastWidth > 48 {
		toastWidth = 48
	}

	rendered := make([]string, 0, len(toasts))
	for _, t := range toasts {
		rendered = append(rendered, r.styleForLevel(t.Level).Width(toastWidth).Render(t.Message))
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}

func (r *Renderer) styleForLevel(level store.NoticeLevel) lipgloss.Style {
	switch level {
	case store.NoticeSuccess:
		return r.styles.ToastSuccess
	case store.NoticeWarning:
		return r.styles.ToastWarning
	case store.NoticeError:
		return r.styles.ToastError
	default:
		return r.styles.ToastInfo
	}
}
