package bmotd

import (
	"errors"
	"strconv"
	"strings"
)

// Info is the decoded form of a Bedrock status payload. The payload is a
// semicolon separated list; servers commonly send 12 fields but older ones
// stop after the server ID, so everything past MaxPlayers is optional and
// left zero-valued when absent.
type Info struct {
	Edition     string `json:"edition"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	ServerID    string `json:"server_id"`
	SubName     string `json:"sub_name,omitempty"`
	GameMode    string `json:"game_mode,omitempty"`
	Protocol    int    `json:"protocol"`
	Players     int    `json:"players"`
	MaxPlayers  int    `json:"max_players"`
	GameModeNum int    `json:"game_mode_num,omitempty"`
	PortV4      int    `json:"port_v4,omitempty"`
	PortV6      int    `json:"port_v6,omitempty"`
}

// ErrInvalidPayload is returned by ParseInfo for payloads with fewer fields
// than any known server sends.
var ErrInvalidPayload = errors.New("status payload has too few fields")

// ParseInfo splits a raw status payload, as returned by Query, into its
// fields. Numeric fields that fail to parse are left at zero rather than
// failing the whole payload, server implementations are not consistent here.
func ParseInfo(payload string) (*Info, error) {
	fields := strings.Split(payload, ";")
	if len(fields) < 6 {
		return nil, ErrInvalidPayload
	}

	info := &Info{
		Edition:    fields[0],
		Name:       fields[1],
		Protocol:   atoi(fields[2]),
		Version:    fields[3],
		Players:    atoi(fields[4]),
		MaxPlayers: atoi(fields[5]),
	}

	if len(fields) > 6 {
		info.ServerID = fields[6]
	}
	if len(fields) > 7 {
		info.SubName = fields[7]
	}
	if len(fields) > 8 {
		info.GameMode = fields[8]
	}
	if len(fields) > 9 {
		info.GameModeNum = atoi(fields[9])
	}
	if len(fields) > 10 {
		info.PortV4 = atoi(fields[10])
	}
	if len(fields) > 11 {
		info.PortV6 = atoi(fields[11])
	}

	return info, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}

	return n
}
