package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Audit campos de auditoría comunes. El actor y la hora llegan siempre como argumentos
// explícitos de cada operación; las entidades nunca leen el reloj ni la sesión.
type Audit struct {
	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Audit) touch(actor string, now time.Time) {
	if actor != "" {
		a.UpdatedBy = actor
	}
	a.UpdatedAt = now
}

// NewAudit auditoría de creación.
func NewAudit(actor string, now time.Time) Audit {
	return Audit{CreatedBy: actor, UpdatedBy: actor, CreatedAt: now, UpdatedAt: now}
}

var hundred = decimal.NewFromInt(100)

// round2 redondea a 2 decimales, mitad hacia arriba (lejos de cero).
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// appendNote agrega una línea al bloque de notas.
func appendNote(notes, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return notes
	}
	if notes == "" {
		return note
	}
	return notes + "\n" + note
}

// DateOf normaliza un instante a su fecha calendario (medianoche UTC).
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween días calendario de from a to (negativo si to es anterior).
func daysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
