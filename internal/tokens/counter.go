package tokens

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sandevgo/membot/internal/core"
)

// Per-message framing cost: every message is wrapped as
// <|start|>{role}\n{content}<|end|>\n on the wire.
const messageOverhead = 3

// Every reply is primed with <|start|>assistant<|end|>.
const replyPrimeOverhead = 3

// Counter counts tokens for a model family using a tiktoken encoding.
// Construct one and pass it where budget decisions are made; counts are
// deterministic for a given encoding.
type Counter struct {
	model    string
	encoding string
	enc      *tiktoken.Tiktoken
}

func NewCounter(model string) (*Counter, error) {
	encoding := encodingForModel(model)
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encoding, err)
	}
	return &Counter{model: model, encoding: encoding, enc: enc}, nil
}

// encodingForModel picks an encoding by model-name substring, defaulting to
// cl100k_base for modern models.
func encodingForModel(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "gpt-4"), strings.Contains(m, "gpt-3.5-turbo"):
		return "cl100k_base"
	case strings.Contains(m, "davinci"), strings.Contains(m, "curie"):
		return "p50k_base"
	case strings.Contains(m, "gpt-2"):
		return "r50k_base"
	default:
		return "cl100k_base"
	}
}

func (c *Counter) Model() string    { return c.model }
func (c *Counter) Encoding() string { return c.encoding }

func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *Counter) CountMessage(msg core.Message) int {
	return messageOverhead + c.Count(msg.Role) + c.Count(msg.Content)
}

func (c *Counter) CountMessages(msgs []core.Message) int {
	if len(msgs) == 0 {
		return 0
	}
	total := 0
	for _, m := range msgs {
		total += c.CountMessage(m)
	}
	return total + replyPrimeOverhead
}
