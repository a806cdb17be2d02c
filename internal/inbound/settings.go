package inbound

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Client is one account allowed to connect through an inbound.
type Client struct {
	ID      uuid.UUID `json:"id"`
	AlterID int       `json:"alterId"`
}

// NewClient returns a client with the given id, generating one for uuid.Nil.
func NewClient(id uuid.UUID) Client {
	if id == uuid.Nil {
		id = uuid.New()
	}
	return Client{ID: id}
}

// UnmarshalJSON generates an id when the payload omits it or sends the nil uuid.
func (c *Client) UnmarshalJSON(data []byte) error {
	type plain Client
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = NewClient(raw.ID)
	c.AlterID = raw.AlterID
	return nil
}

func (c Client) Validate() error {
	if c.ID == uuid.Nil {
		return invalid("id", "must be a non-nil uuid")
	}
	if c.AlterID < 0 {
		return invalid("alterId", "must be >= 0, got %d", c.AlterID)
	}
	return nil
}

// ClientSetting is the protocol "settings" block of an inbound.
type ClientSetting struct {
	Clients                   []Client `json:"clients"`
	DisableInsecureEncryption bool     `json:"disableInsecureEncryption"`
}

func (s ClientSetting) Validate() error {
	if len(s.Clients) == 0 {
		return invalid("clients", "at least one client is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(s.Clients))
	for i, client := range s.Clients {
		path := fmt.Sprintf("clients[%d]", i)
		if err := client.Validate(); err != nil {
			return nested(path, err)
		}
		if _, dup := seen[client.ID]; dup {
			return invalid(path+".id", "duplicate client id %s", client.ID)
		}
		seen[client.ID] = struct{}{}
	}
	return nil
}

func (s ClientSetting) clone() ClientSetting {
	s.Clients = append([]Client(nil), s.Clients...)
	return s
}

// ClientSettingBuilder accumulates a ClientSetting.
type ClientSettingBuilder struct {
	clients                   slot[[]Client]
	disableInsecureEncryption slot[bool]
}

func NewClientSettingBuilder() *ClientSettingBuilder {
	return &ClientSettingBuilder{}
}

func (b *ClientSettingBuilder) WithClients(clients ...Client) *ClientSettingBuilder {
	b.clients.put(append([]Client(nil), clients...))
	return b
}

func (b *ClientSettingBuilder) WithDisableInsecureEncryption(disable bool) *ClientSettingBuilder {
	b.disableInsecureEncryption.put(disable)
	return b
}

func (b *ClientSettingBuilder) Build() (ClientSetting, error) {
	if err := checkSlots("ClientSettingBuilder",
		required("clients", b.clients),
		required("disableInsecureEncryption", b.disableInsecureEncryption),
	); err != nil {
		return ClientSetting{}, err
	}
	setting := ClientSetting{
		Clients:                   b.clients.value,
		DisableInsecureEncryption: b.disableInsecureEncryption.value,
	}.clone()
	if err := setting.Validate(); err != nil {
		return ClientSetting{}, err
	}
	return setting, nil
}
