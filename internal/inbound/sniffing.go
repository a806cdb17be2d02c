package inbound

import (
	"encoding/json"
	"fmt"
	"slices"
)

var knownDestOverrides = []string{"http", "tls", "quic", "fakedns"}

// DefaultDestOverride returns the protocols sniffed when none are configured.
func DefaultDestOverride() []string {
	return []string{"http", "tls"}
}

// Sniffing controls inner-protocol detection on an inbound.
type Sniffing struct {
	Enabled      bool     `json:"enabled"`
	DestOverride []string `json:"destOverride"`
}

// UnmarshalJSON applies DefaultDestOverride when destOverride is absent or null.
// An explicit empty list is kept.
func (s *Sniffing) UnmarshalJSON(data []byte) error {
	type plain Sniffing
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.DestOverride == nil {
		raw.DestOverride = DefaultDestOverride()
	}
	*s = Sniffing(raw)
	return nil
}

func (s Sniffing) Validate() error {
	for i, dest := range s.DestOverride {
		if !slices.Contains(knownDestOverrides, dest) {
			return invalid(fmt.Sprintf("destOverride[%d]", i), "unsupported value %q", dest)
		}
	}
	return nil
}

// SniffingBuilder accumulates a Sniffing block.
type SniffingBuilder struct {
	enabled      slot[bool]
	destOverride slot[[]string]
}

func NewSniffingBuilder() *SniffingBuilder {
	return &SniffingBuilder{}
}

func (b *SniffingBuilder) WithEnabled(enabled bool) *SniffingBuilder {
	b.enabled.put(enabled)
	return b
}

func (b *SniffingBuilder) WithDestOverride(dest ...string) *SniffingBuilder {
	b.destOverride.put(append([]string(nil), dest...))
	return b
}

func (b *SniffingBuilder) Build() (Sniffing, error) {
	if err := checkSlots("SniffingBuilder",
		required("enabled", b.enabled),
		required("destOverride", b.destOverride),
	); err != nil {
		return Sniffing{}, err
	}
	sniffing := Sniffing{
		Enabled:      b.enabled.value,
		DestOverride: append([]string{}, b.destOverride.value...),
	}
	if err := sniffing.Validate(); err != nil {
		return Sniffing{}, err
	}
	return sniffing, nil
}
