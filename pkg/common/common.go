package common

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var snowflakeNode *snowflake.Node

func init() {
	var err error
	snowflakeNode, err = snowflake.NewNode(int64(os.Getpid() % 1023))
	if err != nil {
		snowflakeNode, _ = snowflake.NewNode(1)
	}
}

// UUIDint64 returns a process-unique int64 id.
func UUIDint64() int64 {
	return snowflakeNode.Generate().Int64()
}

// NormalizeNumber strips every non-digit character from a phone number.
// The result is the dedup key for contacts.
func NormalizeNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FallbackMessageID builds a message id for events that carry none.
// Not guaranteed unique; the message table has no uniqueness constraint
// on this field.
func FallbackMessageID() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return fmt.Sprintf("%d-0", time.Now().UnixMilli())
	}
	return fmt.Sprintf("%d-%06d", time.Now().UnixMilli(), n.Int64())
}
