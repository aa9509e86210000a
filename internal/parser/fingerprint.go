package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

// Fingerprint identifies a closing event by its date, business, sequence ID,
// computed cash total, income total and declared difference. Two closings
// with the same fingerprint are the same event.
func Fingerprint(c *entity.Closing) string {
	key := strings.Join([]string{
		c.Date,
		c.Business,
		strconv.Itoa(c.SequenceID),
		strconv.FormatInt(c.CashComputed, 10),
		strconv.FormatInt(c.IncomeTotal, 10),
		strconv.FormatInt(c.Difference, 10),
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}
