// Package knol derives the stable ordering key used for random-by-fact
// queues. Cards sharing a fact share a key, so siblings stay together while
// facts are spread in a pseudo-random but reproducible order.
package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// Normalize joins the fact's fields after trimming, lowercasing and
// unifying line endings, so cosmetic edits do not reshuffle the deck.
func Normalize(f domain.Fact) string {
	clean := func(s string) string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.ToLower(strings.TrimSpace(s))
	}
	return strings.Join([]string{clean(f.Question), clean(f.Answer), clean(f.Context)}, "\n")
}

// OrderKey hashes the deck salt, the fact id and its normalised content.
// Changing the salt reshuffles every fact at once.
func OrderKey(f domain.Fact, salt string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(f.ID, 10)))
	h.Write([]byte{0})
	h.Write([]byte(Normalize(f)))
	return hex.EncodeToString(h.Sum(nil))
}
